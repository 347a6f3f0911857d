package docs

import "github.com/JakeFAU/research-harvester/internal/crawler"

// Index summarizes a full crawl; it is persisted as index.json.
type Index struct {
	TotalPages int                       `json:"total_pages"`
	Sections   map[string][]SectionEntry `json:"sections"`
	Pages      []PageEntry               `json:"pages"`
}

// SectionEntry lists a page under its section.
type SectionEntry struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Subsection *string `json:"subsection"`
}

// PageEntry lists a page in crawl order.
type PageEntry struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Section string `json:"section"`
}

// BuildIndex groups pages by section, keeping crawl order in every list.
func BuildIndex(pages []crawler.DocPage) Index {
	index := Index{
		TotalPages: len(pages),
		Sections:   make(map[string][]SectionEntry),
		Pages:      make([]PageEntry, 0, len(pages)),
	}
	for _, page := range pages {
		index.Sections[page.Section] = append(index.Sections[page.Section], SectionEntry{
			Title:      page.Title,
			URL:        page.URL,
			Subsection: page.Subsection,
		})
		index.Pages = append(index.Pages, PageEntry{
			Title:   page.Title,
			URL:     page.URL,
			Section: page.Section,
		})
	}
	return index
}
