// Package e2e exercises the full pipeline from raw pages to cited answers.
package e2e

import "github.com/parcelmind/regsearch/internal/models"

// RegulationDoc is a parsed regulation document in the test corpus.
type RegulationDoc struct {
	City       string
	Regulation string
	Pages      []string
}

// Corpus returns a small but realistic set of regulation documents spanning
// three cities.
func Corpus() []RegulationDoc {
	return []RegulationDoc{
		{
			City:       "oakland",
			Regulation: "Oakland_ADU_Ordinance",
			Pages: []string{
				"Accessory dwelling units are permitted by right in all R-1 residential districts. " +
					"One attached or detached unit may be established per lot.",
				"Detached accessory dwelling units shall maintain a minimum rear yard setback of four feet. " +
					"Height shall not exceed sixteen feet.\n\n" +
					"Conversion of an existing garage is exempt from setback requirements.",
			},
		},
		{
			City:       "oakland",
			Regulation: "Oakland_Parking",
			Pages: []string{
				"No additional off-street parking is required for an accessory dwelling unit located " +
					"within one-half mile of public transit.",
			},
		},
		{
			City:       "san_jose",
			Regulation: "SJ_Mixed_Use",
			Pages: []string{
				"Mixed-use development is encouraged along commercial corridors. " +
					"Ground floor retail with residential above is permitted in all mixed-use zones.",
			},
		},
		{
			City:       "berkeley",
			Regulation: "Berkeley_Lot_Standards",
			Pages: []string{
				"Minimum lot size in the R-2 district is five thousand square feet. " +
					"Lot coverage shall not exceed forty percent.",
			},
		},
	}
}

// ToPages converts a doc into the page sequence the chunker consumes.
func (d RegulationDoc) ToPages() []models.Page {
	pages := make([]models.Page, 0, len(d.Pages))
	for i, text := range d.Pages {
		pages = append(pages, models.Page{
			Page:       i + 1,
			Text:       text,
			City:       d.City,
			Regulation: d.Regulation,
		})
	}
	return pages
}
