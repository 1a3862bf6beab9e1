package display

// RowView is what the presentation layer shows for one row.
type RowView struct {
	Index      int     `json:"index"`
	Name       string  `json:"name"`
	Depth      float64 `json:"depth"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Quantity   int     `json:"quantity"`
	Empty      bool    `json:"empty"`
	Fits       bool    `json:"fits"`
	Volume     float64 `json:"volume"`
	VolumeText string  `json:"volumeText"`
	Error      bool    `json:"error"`
}

// SummaryView holds the two result slots, the error banner and the pulse sequence.
// TotalVolume and ContainersNeeded are nil while the aggregate is unmeasurable.
type SummaryView struct {
	TotalVolume          *float64 `json:"totalVolume"`
	ContainersNeeded     *int64   `json:"containersNeeded"`
	TotalVolumeText      string   `json:"totalVolumeText"`
	ContainersNeededText string   `json:"containersNeededText"`
	Valid                bool     `json:"valid"`
	ErrorRows            []string `json:"errorRows"`
	Banner               string   `json:"banner,omitempty"`
	Pulse                uint64   `json:"pulse"`
}
