package college

import (
	"encoding/json"
	"strings"
)

// Reservation categories.
const (
	CategoryOpen = "Open"
	CategorySC   = "SC"
	CategoryST   = "ST"
	CategoryOBC  = "OBC"
)

var Categories = []string{CategoryOpen, CategorySC, CategoryST, CategoryOBC}

// StockImage is shown when a college has no usable image.
const StockImage = "https://images.pexels.com/photos/1438081/pexels-photo-1438081.jpeg?auto=compress&cs=tinysrgb&w=400"

type College struct {
	ID               int64   `json:"id"`
	CollegeName      string  `json:"college_name"`
	Branch           string  `json:"branch"`
	CutoffPercentile float64 `json:"cutoff_percentile"`
	Category         string  `json:"category"`
	Region           string  `json:"region"`
	Fees             int64   `json:"fees"`
	MedianPackage    float64 `json:"median_package"`
	ImageURLs        string  `json:"image_urls"` // JSON-encoded []string
}

// Images decodes ImageURLs. A JSON array is returned as is (blank entries
// dropped); anything else is treated as a single URL. Never empty.
func (c College) Images() []string {
	raw := strings.TrimSpace(c.ImageURLs)
	if raw == "" {
		return []string{StockImage}
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		var single string
		if json.Unmarshal([]byte(raw), &single) == nil {
			list = []string{single}
		} else {
			list = []string{raw}
		}
	}
	out := make([]string, 0, len(list))
	for _, u := range list {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	if len(out) == 0 {
		return []string{StockImage}
	}
	return out
}

// EncodeImages serialises a URL list into the image_urls column format.
func EncodeImages(urls []string) string {
	if len(urls) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(urls)
	return string(b)
}

// Profile is what a student searches with. Percentile is required, the rest
// are optional and act as wildcards when empty.
type Profile struct {
	Percentile float64 `json:"percentile"`
	Category   string  `json:"category,omitempty"`
	Region     string  `json:"region,omitempty"`
	Branch     string  `json:"branch,omitempty"`
}

// Scored is a college annotated with its match score.
type Scored struct {
	College    College `json:"college"`
	MatchScore int     `json:"match_score"`
	Badge      string  `json:"badge"`
}
