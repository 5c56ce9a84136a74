package access

// Section names of the closed section catalog.
const (
	SectionMedia          = "media"
	SectionReports        = "reports"
	SectionInterventions  = "interventions"
	SectionTeam           = "team"
	SectionBanners        = "banners"
	SectionAccreditations = "accreditations"
	SectionCareers        = "careers"
	SectionUsers          = "users"
)

// SectionSpec describes a section and the sub-sections the dashboard edits.
type SectionSpec struct {
	Name        string   `json:"name"`
	SubSections []string `json:"sub_sections"`
}

var catalog = []SectionSpec{
	{Name: SectionMedia, SubSections: []string{"blogs", "news", "gallery", "videos"}},
	{Name: SectionReports, SubSections: []string{"annual", "quarterly"}},
	{Name: SectionInterventions},
	{Name: SectionTeam, SubSections: []string{"leadership", "staff"}},
	{Name: SectionBanners},
	{Name: SectionAccreditations},
	{Name: SectionCareers, SubSections: []string{"openings", "applications"}},
	{Name: SectionUsers},
}

// Catalog returns a copy of the section catalog.
func Catalog() []SectionSpec {
	out := make([]SectionSpec, len(catalog))
	for i, s := range catalog {
		out[i] = SectionSpec{Name: s.Name, SubSections: append([]string(nil), s.SubSections...)}
	}
	return out
}

// IsKnownSection reports whether name belongs to the catalog.
func IsKnownSection(name string) bool {
	for _, s := range catalog {
		if s.Name == name {
			return true
		}
	}
	return false
}

// CatalogKey names one (section, sub-section) pair. SubSection "" is the whole section.
type CatalogKey struct {
	Section    string
	SubSection string
}

// CatalogPairs enumerates every catalog pair, whole-section entry first.
func CatalogPairs() []CatalogKey {
	var pairs []CatalogKey
	for _, s := range catalog {
		pairs = append(pairs, CatalogKey{Section: s.Name})
		for _, sub := range s.SubSections {
			pairs = append(pairs, CatalogKey{Section: s.Name, SubSection: sub})
		}
	}
	return pairs
}
