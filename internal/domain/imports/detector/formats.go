package detector

// AmountStyle describes how a bank export represents money movement.
type AmountStyle string

const (
	// StyleSingle is one signed amount column.
	StyleSingle AmountStyle = "single"
	// StyleDebitCredit is separate outflow/inflow columns.
	StyleDebitCredit AmountStyle = "debit_credit"
)

// headerCandidate names the header labels a bank uses for each column role.
// Empty labels mean the role is absent from the export. All non-empty labels
// must be present (order-insensitive) for the candidate to match.
type headerCandidate struct {
	date        string
	description string
	amount      string
	debit       string
	credit      string
	balance     string
}

// BankFormat is immutable reference data describing one known bank export.
type BankFormat struct {
	Name       string
	Style      AmountStyle
	candidates []headerCandidate
}

// FormatGeneric is the fallback when no known bank matches.
const FormatGeneric = "generic"

// bankFormats is the closed set of recognized banks, checked in order;
// first full candidate match wins.
var bankFormats = []BankFormat{
	{
		Name:  "td",
		Style: StyleDebitCredit,
		candidates: []headerCandidate{
			{date: "date", description: "description", debit: "debit", credit: "credit", balance: "balance"},
		},
	},
	{
		Name:  "rbc",
		Style: StyleSingle,
		candidates: []headerCandidate{
			{date: "transaction date", description: "description 1", amount: "cad$"},
			{date: "transaction date", description: "description", amount: "amount"},
		},
	},
	{
		Name:  "scotiabank",
		Style: StyleSingle,
		candidates: []headerCandidate{
			{date: "date", description: "description", amount: "amount", balance: "balance"},
		},
	},
	{
		Name:  "bmo",
		Style: StyleSingle,
		candidates: []headerCandidate{
			{date: "date posted", description: "description", amount: "transaction amount"},
			{date: "date posted", description: "transaction type", amount: "transaction amount"},
		},
	},
	{
		Name:  "cibc",
		Style: StyleDebitCredit,
		candidates: []headerCandidate{
			{date: "date", description: "transaction description", debit: "funds out", credit: "funds in"},
			{date: "date", description: "transaction", debit: "debit", credit: "credit"},
		},
	},
	{
		Name:  "tangerine",
		Style: StyleSingle,
		candidates: []headerCandidate{
			{date: "transaction date", description: "name", amount: "amount"},
			{date: "date", description: "memo", amount: "amount"},
		},
	},
}

// Generic-format substring keyword sets, per column role.
var (
	genericDateKeys    = []string{"date", "transaction date", "trans date"}
	genericDescKeys    = []string{"description", "desc", "details", "memo", "payee", "merchant"}
	genericAmountKeys  = []string{"amount", "amt"}
	genericDebitKeys   = []string{"debit"}
	genericCreditKeys  = []string{"credit"}
	genericBalanceKeys = []string{"balance"}
)

// headerKeywords gate the header-presence heuristic: a line with none of
// these is treated as data.
var headerKeywords = []string{"date", "description", "amount", "debit", "credit", "balance", "transaction"}
