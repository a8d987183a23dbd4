package model

// Insight is a short savings article rendered from Markdown.
type Insight struct {
	Slug  string   `json:"slug"`
	Title string   `json:"title"`
	Order int      `json:"order"`
	Tags  []string `json:"tags,omitempty"`
	HTML  string   `json:"html"`
}

func (i *Insight) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
