package ledger

import "github.com/partita-dev/partita/internal/model"

// DefaultChart returns the base chart of accounts: five grouping roots with
// postable sub-accounts underneath. Parents precede children.
func DefaultChart() []model.Account {
	return []model.Account{
		{Code: "1", Name: "Assets", Kind: model.KindAsset},
		{Code: "11", Name: "Current Assets", Kind: model.KindAsset, ParentCode: "1", Postable: true},
		{Code: "111", Name: "Cash", Kind: model.KindAsset, ParentCode: "11", Postable: true},
		{Code: "112", Name: "Bank", Kind: model.KindAsset, ParentCode: "11", Postable: true},
		{Code: "113", Name: "Receivables", Kind: model.KindAsset, ParentCode: "11", Postable: true, Description: "Amounts owed by customers"},
		{Code: "114", Name: "VAT Receivable", Kind: model.KindAsset, ParentCode: "11", Postable: true, Description: "Input VAT on purchases"},
		{Code: "12", Name: "Fixed Assets", Kind: model.KindAsset, ParentCode: "1", Postable: true},

		{Code: "2", Name: "Liabilities", Kind: model.KindLiability},
		{Code: "21", Name: "Debts", Kind: model.KindLiability, ParentCode: "2", Postable: true},
		{Code: "211", Name: "Payables", Kind: model.KindLiability, ParentCode: "21", Postable: true, Description: "Amounts owed to suppliers"},
		{Code: "212", Name: "VAT Payable", Kind: model.KindLiability, ParentCode: "21", Postable: true, Description: "Output VAT on sales"},

		{Code: "3", Name: "Equity", Kind: model.KindEquity},
		{Code: "31", Name: "Share Capital", Kind: model.KindEquity, ParentCode: "3", Postable: true},

		{Code: "4", Name: "Revenue", Kind: model.KindRevenue},
		{Code: "41", Name: "Sales Revenue", Kind: model.KindRevenue, ParentCode: "4", Postable: true},
		{Code: "42", Name: "Other Revenue", Kind: model.KindRevenue, ParentCode: "4", Postable: true},

		{Code: "5", Name: "Expenses", Kind: model.KindExpense},
		{Code: "51", Name: "Raw Materials", Kind: model.KindExpense, ParentCode: "5", Postable: true},
		{Code: "52", Name: "Services", Kind: model.KindExpense, ParentCode: "5", Postable: true},
		{Code: "53", Name: "Personnel", Kind: model.KindExpense, ParentCode: "5", Postable: true},
	}
}
