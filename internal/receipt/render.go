package receipt

import (
	"fmt"
	"strings"
	"time"
)

// Organization header printed on every receipt.
const (
	orgName  = "浪兔之家協會"
	docTitle = "捐款收據"
)

// Input is the verified-donation data a receipt is rendered from. The
// renderer is pure: it never consults the store and trusts its caller to
// have checked the donation is verified.
type Input struct {
	ReceiptNo string
	Date      time.Time
	DonorName string
	TaxID     string // optional
	Amount    uint64 // whole currency units
}

// Document is the printable receipt layout.
type Document struct {
	Title        string `json:"title"`
	Organization string `json:"organization"`
	ReceiptNo    string `json:"receipt_no"`
	Date         string `json:"date"`
	DonorName    string `json:"donor_name"`
	TaxID        string `json:"tax_id,omitempty"`
	AmountDigits string `json:"amount_digits"`
	AmountWords  string `json:"amount_words"`
}

// Render maps donation fields to the fixed receipt layout, including the
// financial-numeral rendering of the amount.
func Render(in Input) Document {
	return Document{
		Title:        docTitle,
		Organization: orgName,
		ReceiptNo:    in.ReceiptNo,
		Date:         in.Date.Format("2006-01-02"),
		DonorName:    in.DonorName,
		TaxID:        in.TaxID,
		AmountDigits: fmt.Sprintf("NT$ %s", groupDigits(in.Amount)),
		AmountWords:  "新臺幣 " + NumberToChinese(in.Amount),
	}
}

// Text renders the document as a fixed-width printable block.
func (d Document) Text() string {
	var b strings.Builder
	b.WriteString(d.Organization + "\n")
	b.WriteString(d.Title + "\n")
	b.WriteString(strings.Repeat("=", 32) + "\n")
	b.WriteString("收據編號：" + d.ReceiptNo + "\n")
	b.WriteString("開立日期：" + d.Date + "\n")
	b.WriteString("捐款人　：" + d.DonorName + "\n")
	if d.TaxID != "" {
		b.WriteString("統一編號：" + d.TaxID + "\n")
	}
	b.WriteString("捐款金額：" + d.AmountDigits + "\n")
	b.WriteString("金額大寫：" + d.AmountWords + "\n")
	b.WriteString(strings.Repeat("=", 32) + "\n")
	return b.String()
}

// groupDigits inserts thousands separators, e.g. 1234567 -> "1,234,567".
func groupDigits(n uint64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
