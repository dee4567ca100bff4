// Package catalogue defines the blog post entity and the loader that turns
// raw post records into a validated, ordered catalogue.
package catalogue

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date form used on the wire.
const DateLayout = "2006-01-02"

// RawPost is a post record as supplied by the content pipeline. Unknown
// fields in the source document are ignored by the decoders.
type RawPost struct {
	ID       string   `json:"id" yaml:"id"`
	Title    string   `json:"title" yaml:"title"`
	Content  string   `json:"content" yaml:"content"`
	Summary  string   `json:"summary" yaml:"summary"`
	Author   string   `json:"author" yaml:"author"`
	Category string   `json:"category" yaml:"category"`
	ImageURL string   `json:"imageUrl" yaml:"imageUrl"`
	Date     string   `json:"date" yaml:"date"`
	Tags     []string `json:"tags" yaml:"tags"`
	ReadTime string   `json:"readTime" yaml:"readTime"`
}

// Date is a calendar date without a time of day, always in UTC.
type Date struct {
	time.Time
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp and truncates the
// latter to its UTC calendar date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: expected %s or RFC 3339", s, DateLayout)
	}
	t = t.UTC()
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDate(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Post is a validated, immutable blog post. Nothing downstream of the
// loader mutates a Post.
type Post struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Summary  string   `json:"summary"`
	Author   string   `json:"author"`
	Category string   `json:"category"`
	ImageURL string   `json:"imageUrl"`
	Date     Date     `json:"date"`
	Tags     []string `json:"tags"`
	ReadTime string   `json:"readTime"`
}

// HasTag reports whether the post carries tag.
func (p *Post) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
