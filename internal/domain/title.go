package domain

// VariantTitle is one rewrite of the original title from a single angle.
type VariantTitle struct {
	Title string `json:"title"`
	Angle string `json:"angle"`
	Focus string `json:"focus"`
}

// Pool returns the original title followed by every variant title. The
// original always comes first.
func Pool(original string, variants []VariantTitle) []string {
	pool := make([]string, 0, len(variants)+1)
	pool = append(pool, original)
	for _, v := range variants {
		pool = append(pool, v.Title)
	}
	return pool
}

// SufficiencyResult is the verdict on whether a title carries enough context.
type SufficiencyResult struct {
	IsSufficient bool   `json:"isSufficient"`
	Reason       string `json:"reason"`
}
