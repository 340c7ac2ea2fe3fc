package domain

// SectionCounts tallies the records derived from a set of sections.
type SectionCounts struct {
	Sections        int
	Subsections     int
	Definitions     int
	CrossReferences int
}

// Counts returns record totals for the unit's sections.
func (u *Unit) Counts() SectionCounts {
	c := SectionCounts{Sections: len(u.Sections)}
	for i := range u.Sections {
		c.Subsections += len(u.Sections[i].Subsections)
		c.Definitions += len(u.Sections[i].Definitions)
		c.CrossReferences += len(u.Sections[i].References)
	}
	return c
}

// DefinitionTerms returns the terms of the section's definitions in order.
func (s *Section) DefinitionTerms() []string {
	terms := make([]string, 0, len(s.Definitions))
	for _, d := range s.Definitions {
		terms = append(terms, d.Term)
	}
	return terms
}
