package display

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/eugenenazirov/cabinet-calculator/internal/calculator"
)

// Formatter renders calculator results for one locale.
type Formatter struct {
	locale  Locale
	printer *message.Printer
}

// NewFormatter returns a Formatter for l; unknown locales use DefaultLocale.
func NewFormatter(l Locale) *Formatter {
	if _, ok := catalogue[l]; !ok {
		l = DefaultLocale
	}
	return &Formatter{
		locale:  l,
		printer: message.NewPrinter(l.Tag()),
	}
}

// Locale returns the formatter's locale.
func (f *Formatter) Locale() Locale {
	return f.locale
}

// Number rounds once to the nearest integer and groups thousands. Values beyond the
// int64 range are grouped from their float approximation instead of wrapping.
func (f *Formatter) Number(d decimal.Decimal) string {
	rounded := d.Round(0)
	if rounded.BigInt().IsInt64() {
		return f.printer.Sprintf("%d", rounded.IntPart())
	}
	return f.printer.Sprint(number.Decimal(rounded.InexactFloat64(), number.MaxFractionDigits(0)))
}

// Volume renders a volume in mm³.
func (f *Formatter) Volume(d decimal.Decimal) string {
	return fmt.Sprintf(f.Text(KeyVolumeUnit), f.Number(d))
}

// Containers renders a container count with its unit.
func (f *Formatter) Containers(n int64) string {
	return fmt.Sprintf(f.Text(KeyContainerUnit), f.printer.Sprintf("%d", n))
}

// Unmeasurable returns the sentinel text shown instead of totals.
func (f *Formatter) Unmeasurable() string {
	return f.Text(KeyUnmeasurable)
}

// RowLabel returns the row's name, or a localized "Row {i}" when it is blank.
func (f *Formatter) RowLabel(ref calculator.RowRef) string {
	if name := strings.TrimSpace(ref.Name); name != "" {
		return name
	}
	return fmt.Sprintf(f.Text(KeyRowLabel), ref.Index)
}

// Banner returns the error message naming the failing rows, or "" when there are none.
func (f *Formatter) Banner(refs []calculator.RowRef) string {
	if len(refs) == 0 {
		return ""
	}
	return fmt.Sprintf(f.Text(KeyFitBanner), strings.Join(f.labels(refs), f.Text(KeyListSeparator)))
}

// Row builds the view of a single row and its evaluation.
func (f *Formatter) Row(row calculator.EquipmentRow, eval calculator.RowEvaluation) RowView {
	view := RowView{
		Index:    row.Index,
		Name:     row.Name,
		Depth:    row.Depth,
		Width:    row.Width,
		Height:   row.Height,
		Quantity: row.Quantity,
		Empty:    eval.Empty,
		Fits:     eval.Fits,
		Volume:   eval.ItemVolume.InexactFloat64(),
	}
	if !eval.Fits {
		view.VolumeText = f.Text(KeyDoesNotFit)
		view.Error = true
		return view
	}
	view.VolumeText = f.Number(eval.ItemVolume)
	return view
}

// Summary builds the result slots; an invalid aggregate replaces both numbers with the
// unmeasurable text.
func (f *Formatter) Summary(result calculator.AggregateResult) SummaryView {
	view := SummaryView{
		Valid:     result.Valid,
		ErrorRows: f.labels(result.Errors),
	}

	volume, err := result.TotalVolume()
	if err != nil {
		view.TotalVolumeText = f.Unmeasurable()
		view.ContainersNeededText = f.Unmeasurable()
		view.Banner = f.Banner(result.Errors)
		return view
	}
	containers, _ := result.ContainersNeeded()

	total := volume.Round(0).InexactFloat64()
	view.TotalVolume = &total
	view.ContainersNeeded = &containers
	view.TotalVolumeText = f.Volume(volume)
	view.ContainersNeededText = f.Containers(containers)
	return view
}

func (f *Formatter) labels(refs []calculator.RowRef) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, f.RowLabel(ref))
	}
	return out
}

// Text returns the message for key in the formatter's locale.
func (f *Formatter) Text(key string) string {
	return Translate(f.locale, key)
}
