package ucc

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/legaltext"
)

var commercialTerms = legaltext.NewTable(legaltext.Substring,
	legaltext.Group{Label: "secured_transactions", Terms: []string{
		"security interest", "security agreement", "financing statement", "collateral",
		"debtor", "secured party", "purchase money security interest",
		"perfection", "attachment", "priority", "default", "foreclosure",
		"deposit account", "inventory", "equipment", "accounts receivable",
		"chattel paper", "instruments", "documents", "general intangibles",
	}},
	legaltext.Group{Label: "sales", Terms: []string{
		"contract of sale", "buyer", "seller", "goods", "delivery",
		"acceptance", "rejection", "revocation", "breach", "cover",
		"warranty", "merchantability", "fitness for purpose",
		"tender", "conforming goods", "installment contract",
		"battle of the forms", "firm offer", "requirements contract",
	}},
	legaltext.Group{Label: "leases", Terms: []string{
		"lease agreement", "lessor", "lessee", "finance lease",
		"consumer lease", "lease term", "rental", "residual value",
		"casualty to goods", "sublease", "assignment of lease",
	}},
	legaltext.Group{Label: "negotiable_instruments", Terms: []string{
		"negotiable instrument", "promissory note", "check", "draft",
		"payee", "drawer", "drawee", "endorsement", "bearer",
		"holder in due course", "negotiation", "dishonor",
		"accommodation party", "guarantee", "indorsement",
	}},
	legaltext.Group{Label: "bank_deposits", Terms: []string{
		"bank", "customer", "deposit account", "check collection",
		"provisional settlement", "final payment", "midnight deadline",
		"collecting bank", "depositary bank", "payor bank",
		"presentment", "notice of dishonor", "protest",
	}},
	legaltext.Group{Label: "funds_transfers", Terms: []string{
		"payment order", "originator", "beneficiary", "receiving bank",
		"sender", "intermediary bank", "fedwire",
		"funds transfer", "execution", "acceptance", "cancellation",
	}},
	legaltext.Group{Label: "letters_of_credit", Terms: []string{
		"letter of credit", "issuer", "applicant", "beneficiary",
		"advising bank", "confirming bank", "documentary credit",
		"standby letter of credit", "sight draft", "time draft",
		"presentation", "honor", "wrongful dishonor",
	}},
	legaltext.Group{Label: "warehouse_receipts", Terms: []string{
		"warehouse receipt", "bill of lading", "document of title",
		"warehouseman", "carrier", "consignor", "consignee",
		"bailment", "negotiable document", "delivery order",
	}},
	legaltext.Group{Label: "investment_securities", Terms: []string{
		"security", "certificated security", "uncertificated security",
		"security entitlement", "securities account", "entitlement holder",
		"securities intermediary", "protected purchaser", "adverse claim",
		"instruction", "entitlement order",
	}},
	legaltext.Group{Label: "bulk_transfers", Terms: []string{
		"bulk transfer", "bulk sale", "transferor", "transferee",
		"creditor", "notice to creditors", "schedule of property",
		"list of creditors",
	}},
	legaltext.Group{Label: "controllable_records", Terms: []string{
		"controllable electronic record", "qualifying purchaser",
		"control", "copy", "authoritative copy", "tamper evident",
	}},
)

// acronyms match whole words only; as substrings "ACH" hits "each".
var acronyms = legaltext.NewTable(legaltext.WholeWord,
	legaltext.Group{Label: "secured_transactions", Terms: []string{"PMSI"}},
	legaltext.Group{Label: "funds_transfers", Terms: []string{"ACH", "SWIFT"}},
)

var transactionTypes = legaltext.NewTable(legaltext.Substring,
	legaltext.Group{Label: "sales", Terms: []string{"sale", "buyer", "seller", "goods", "contract of sale"}},
	legaltext.Group{Label: "leases", Terms: []string{"lease", "lessor", "lessee", "rental"}},
	legaltext.Group{Label: "secured_transactions", Terms: []string{"security interest", "collateral", "financing statement"}},
	legaltext.Group{Label: "negotiable_instruments", Terms: []string{"check", "note", "draft", "negotiable instrument"}},
	legaltext.Group{Label: "bank_deposits", Terms: []string{"bank", "deposit", "collection", "check collection"}},
	legaltext.Group{Label: "funds_transfers", Terms: []string{"wire transfer", "payment order", "funds transfer"}},
	legaltext.Group{Label: "letters_of_credit", Terms: []string{"letter of credit", "documentary credit"}},
	legaltext.Group{Label: "warehouse_receipts", Terms: []string{"warehouse receipt", "bill of lading"}},
	legaltext.Group{Label: "investment_securities", Terms: []string{"security", "stock", "bond", "investment"}},
	legaltext.Group{Label: "bulk_transfers", Terms: []string{"bulk transfer", "bulk sale"}},
	legaltext.Group{Label: "controllable_records", Terms: []string{"controllable electronic record", "electronic record"}},
)

var topics = legaltext.NewTable(legaltext.Substring,
	legaltext.Group{Label: "contract_formation", Terms: []string{
		"offer", "acceptance", "consideration", "contract formation",
		"battle of forms", "firm offer", "modification",
	}},
	legaltext.Group{Label: "performance", Terms: []string{
		"performance", "tender", "delivery", "installment",
		"substantial performance", "cure", "rejection",
	}},
	legaltext.Group{Label: "breach_remedies", Terms: []string{
		"breach", "damages", "cover", "incidental damages",
		"consequential damages", "liquidated damages", "specific performance",
	}},
	legaltext.Group{Label: "warranties", Terms: []string{
		"warranty", "merchantability", "fitness for purpose",
		"express warranty", "implied warranty", "disclaimer",
	}},
	legaltext.Group{Label: "risk_of_loss", Terms: []string{
		"risk of loss", "title", "FOB", "CIF", "delivery terms",
		"shipping terms", "carrier", "casualty",
	}},
	legaltext.Group{Label: "credit_protection", Terms: []string{
		"security interest", "perfection", "priority", "attachment",
		"financing statement", "lien", "pledge",
	}},
	legaltext.Group{Label: "payment_systems", Terms: []string{
		"payment", "check", "electronic transfer", "credit card",
		"bank", "settlement", "clearing",
	}},
	legaltext.Group{Label: "commercial_paper", Terms: []string{
		"negotiable instrument", "holder in due course", "negotiation",
		"endorsement", "dishonor", "liability",
	}},
)

var legalTerms = legaltext.NewTable(legaltext.Substring, legaltext.Group{Label: "legal", Terms: []string{
	"contract", "agreement", "party", "obligation", "right", "duty",
	"breach", "remedy", "damages", "liability", "enforce", "void",
	"voidable", "valid", "invalid", "notice", "consent", "authorize",
}})

const sectionNumber = `(\d+[A-Za-z]?)-(\d+[a-z]?(?:-\d+[a-z]?)*)`

var (
	uccPattern         = regexp.MustCompile(`(?i)\bUCC\s+(?:§+\s*)?` + sectionNumber + `\b`)
	sectionRefPattern  = regexp.MustCompile(`(?i)\bSection\s+` + sectionNumber + `\b`)
	articleRefPattern  = regexp.MustCompile(`(?i)\bArticle\s+(\d+[A-Z]?)\b`)
	uscPattern         = regexp.MustCompile(`(?i)\b(\d+)\s+U\.?\s?S\.?\s?C\.?\s+(?:§+\s*)?(\d+[a-z]?(?:-\d+[a-z]?)*)`)
	cfrPattern         = regexp.MustCompile(`(?i)\b(\d+)\s+C\.?\s?F\.?\s?R\.?\s+(?:§+\s*)?(\d+(?:\.\d+)*)`)
	restatementPattern = regexp.MustCompile(`(?i)\bRestatement\s+\(([^)]+)\)\s+(?:of\s+[A-Za-z ]+\s+)?§?\s*(\d+)`)
)

func resolveSection(g []string) legaltext.Target {
	article := strings.ToUpper(g[1])
	return legaltext.Target{Citation: Citation(article, g[2]), Unit: article, Section: g[2]}
}

// citationRules is the commercial citation table. UCC and "Section a-s"
// citations resolve inside the corpus; statutes, regulations and
// restatements are kept as raw references.
var citationRules = []legaltext.CitationRule{
	{Name: "ucc_section", Pattern: uccPattern, Kind: domain.RefInternalSection, Resolve: resolveSection},
	{Name: "section_ref", Pattern: sectionRefPattern, Kind: domain.RefInternalSection, Resolve: resolveSection},
	{
		Name:    "article_ref",
		Pattern: articleRefPattern,
		Kind:    domain.RefInternalDivision,
		Resolve: func(g []string) legaltext.Target {
			article := strings.ToUpper(g[1])
			return legaltext.Target{Citation: fmt.Sprintf("UCC Article %s", article), Unit: article}
		},
	},
	{Name: "usc", Pattern: uscPattern, Kind: domain.RefExternalCode},
	{Name: "cfr", Pattern: cfrPattern, Kind: domain.RefExternalRegulation},
	{Name: "restatement", Pattern: restatementPattern, Kind: domain.RefOther},
}
