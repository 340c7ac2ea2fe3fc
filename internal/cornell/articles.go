package cornell

// Article is a known UCC article.
type Article struct {
	Number string
	Name   string
}

// KnownArticles lists the UCC articles in canonical order.
var KnownArticles = []Article{
	{Number: "1", Name: "General Provisions"},
	{Number: "2", Name: "Sales"},
	{Number: "2A", Name: "Leases"},
	{Number: "3", Name: "Negotiable Instruments"},
	{Number: "4", Name: "Bank Deposits and Collections"},
	{Number: "4A", Name: "Funds Transfers"},
	{Number: "5", Name: "Letters of Credit"},
	{Number: "6", Name: "Bulk Transfers"},
	{Number: "7", Name: "Warehouse Receipts, Bills of Lading and Other Documents of Title"},
	{Number: "8", Name: "Investment Securities"},
	{Number: "9", Name: "Secured Transactions"},
	{Number: "12", Name: "Controllable Electronic Records"},
}

// ArticleName returns the name of a known article.
func ArticleName(number string) (string, bool) {
	for _, a := range KnownArticles {
		if a.Number == number {
			return a.Name, true
		}
	}
	return "", false
}
