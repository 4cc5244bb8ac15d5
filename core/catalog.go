package core

// CatalogEntry is the externally visible projection of one registered
// capability. Field names follow the original catalog wire format.
type CatalogEntry struct {
	Name        string      `json:"nama"`
	Description string      `json:"deskripsi"`
	Category    string      `json:"kategori"`
	Method      string      `json:"method"`
	Endpoint    string      `json:"endpoint"`
	Parameters  []Parameter `json:"parameter"`
	Example     string      `json:"contoh"`
}

// Catalog is the read-only listing derived from a route table. It is
// regenerated atomically with the table it describes.
type Catalog struct {
	Entries []CatalogEntry
}

// Categories returns the distinct category names in catalog order.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool, len(c.Entries))
	out := make([]string, 0, len(c.Entries))
	for _, entry := range c.Entries {
		if !seen[entry.Category] {
			seen[entry.Category] = true
			out = append(out, entry.Category)
		}
	}
	return out
}
