package search

import "context"

// Category biases a provider toward a content type. Providers that do not
// support categories may ignore it.
type Category string

const (
	CategoryNews            Category = "news"
	CategoryCompany         Category = "company"
	CategoryResearchPaper   Category = "research paper"
	CategoryFinancialReport Category = "financial report"
	CategoryGithub          Category = "github"
	CategoryPDF             Category = "pdf"
)

// Result is a single normalized search result.
type Result struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Content       string `json:"content"`
	PublishedDate string `json:"published_date,omitempty"`
	Favicon       string `json:"favicon,omitempty"`
}

// ContentResult holds the full text retrieved for a single URL.
type ContentResult struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Options holds optional parameters for a search request.
type Options struct {
	Category   Category
	DateFloor  string // earliest publish date, "2006-01-02"
	MaxResults int
}

// Provider abstracts a web search backend with live content retrieval.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
	GetContents(ctx context.Context, urls []string, maxChars int) ([]ContentResult, error)
}
