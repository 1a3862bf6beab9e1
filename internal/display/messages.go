package display

// Message keys.
const (
	KeyUnmeasurable   = "result.unmeasurable"
	KeyDoesNotFit     = "row.does_not_fit"
	KeyRowLabel       = "row.label"
	KeyContainerUnit  = "result.container_unit"
	KeyVolumeUnit     = "result.volume_unit"
	KeyFitBanner      = "banner.fit_violation"
	KeyListSeparator  = "list.separator"
	KeySummaryHeading = "export.summary"

	KeyHeaderIndex      = "export.header.index"
	KeyHeaderName       = "export.header.name"
	KeyHeaderDepth      = "export.header.depth"
	KeyHeaderWidth      = "export.header.width"
	KeyHeaderHeight     = "export.header.height"
	KeyHeaderQuantity   = "export.header.quantity"
	KeyHeaderVolume     = "export.header.volume"
	KeyTotalVolume      = "export.total_volume"
	KeyContainersNeeded = "export.containers_needed"
)

var catalogue = map[Locale]map[string]string{
	Japanese: {
		KeyUnmeasurable:   "計測不可",
		KeyDoesNotFit:     "収納不可",
		KeyRowLabel:       "行%d",
		KeyContainerUnit:  "%s台",
		KeyVolumeUnit:     "%s mm³",
		KeyFitBanner:      "以下の機器がキャビネットの内寸を超えています: %s",
		KeyListSeparator:  ", ",
		KeySummaryHeading: "集計",

		KeyHeaderIndex:      "No.",
		KeyHeaderName:       "機器名称",
		KeyHeaderDepth:      "縦 (mm)",
		KeyHeaderWidth:      "横 (mm)",
		KeyHeaderHeight:     "高さ (mm)",
		KeyHeaderQuantity:   "数量",
		KeyHeaderVolume:     "容積 (mm³)",
		KeyTotalVolume:      "合計容積",
		KeyContainersNeeded: "必要キャビネット台数",
	},
	English: {
		KeyUnmeasurable:   "Unmeasurable",
		KeyDoesNotFit:     "Does not fit",
		KeyRowLabel:       "Row %d",
		KeyContainerUnit:  "%s cabinets",
		KeyVolumeUnit:     "%s mm³",
		KeyFitBanner:      "The following equipment exceeds the cabinet's inner dimensions: %s",
		KeyListSeparator:  ", ",
		KeySummaryHeading: "Summary",

		KeyHeaderIndex:      "No.",
		KeyHeaderName:       "Equipment",
		KeyHeaderDepth:      "Depth (mm)",
		KeyHeaderWidth:      "Width (mm)",
		KeyHeaderHeight:     "Height (mm)",
		KeyHeaderQuantity:   "Quantity",
		KeyHeaderVolume:     "Volume (mm³)",
		KeyTotalVolume:      "Total volume",
		KeyContainersNeeded: "Cabinets needed",
	},
}

// Translate returns the message for key in locale, falling back to DefaultLocale and
// finally to the key itself.
func Translate(l Locale, key string) string {
	if msgs, ok := catalogue[l]; ok {
		if msg, ok := msgs[key]; ok {
			return msg
		}
	}
	if msg, ok := catalogue[DefaultLocale][key]; ok {
		return msg
	}
	return key
}
