// Package reply renders ledger results as chat text.
package reply

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"warung/internal/command"
	"warung/internal/core"
	"warung/internal/ledger"
)

const (
	DefaultCurrency = "Rp"

	timestampLayout = "2/1/2006, 15.04.05"
	dateLayout      = "2/1/2006"
)

// Options configures a Formatter. Zero values fall back to Indonesian
// formatting in the local zone with the default prefix and menu.
type Options struct {
	Language language.Tag
	Currency string
	Location *time.Location
	Prefix   string
	Menu     []MenuSection
}

// Formatter turns operation results into reply text. It never validates or
// mutates what it renders.
type Formatter struct {
	printer  *message.Printer
	currency string
	loc      *time.Location
	prefix   string
	menu     []MenuSection
}

func New(opts Options) *Formatter {
	if opts.Language == language.Und {
		opts.Language = language.Indonesian
	}
	if opts.Currency == "" {
		opts.Currency = DefaultCurrency
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Prefix == "" {
		opts.Prefix = command.DefaultPrefix
	}
	if opts.Menu == nil {
		opts.Menu = DefaultMenu
	}
	return &Formatter{
		printer:  message.NewPrinter(opts.Language),
		currency: opts.Currency,
		loc:      opts.Location,
		prefix:   opts.Prefix,
		menu:     opts.Menu,
	}
}

// Money renders an amount with locale digit grouping, e.g. "Rp 36.000".
func (f *Formatter) Money(amount int64) string {
	return f.currency + " " + f.printer.Sprintf("%d", amount)
}

func (f *Formatter) timestamp(t time.Time) string {
	return t.In(f.loc).Format(timestampLayout)
}

// Recorded picks the confirmation matching the transaction kind.
func (f *Formatter) Recorded(t core.Transaction) string {
	switch t.Kind {
	case core.Income:
		return f.Income(t)
	case core.Purchase:
		return f.Purchase(t)
	default:
		return f.Expense(t)
	}
}

func (f *Formatter) Income(t core.Transaction) string {
	qty := t.Quantity
	if qty < 1 {
		qty = 1
	}
	var b strings.Builder
	b.WriteString("✅ PEMASUKAN DICATAT!\n\n")
	fmt.Fprintf(&b, "📝 Item: %s\n", t.Item)
	fmt.Fprintf(&b, "🔢 Jumlah: %d\n", t.Quantity)
	fmt.Fprintf(&b, "💰 Harga satuan: %s\n", f.Money(t.Amount/qty))
	fmt.Fprintf(&b, "💵 Total: %s\n", f.Money(t.Amount))
	fmt.Fprintf(&b, "📅 %s", f.timestamp(t.OccurredAt))
	return b.String()
}

func (f *Formatter) Expense(t core.Transaction) string {
	return f.outgoing("💸 PENGELUARAN DICATAT!", t)
}

func (f *Formatter) Purchase(t core.Transaction) string {
	return f.outgoing("🛒 BELANJA DICATAT!", t)
}

func (f *Formatter) outgoing(title string, t core.Transaction) string {
	return fmt.Sprintf("%s\n\n📝 Item: %s\n💰 Jumlah: %s\n📅 %s",
		title, t.Item, f.Money(t.Amount), f.timestamp(t.OccurredAt))
}

func (f *Formatter) Deleted(t core.Transaction) string {
	return fmt.Sprintf("🗑️ TRANSAKSI DIHAPUS!\n\n📝 %s\n💰 %s\n📅 %s",
		t.Item, f.Money(t.Amount), f.timestamp(t.OccurredAt))
}

func (f *Formatter) NothingToDelete() string {
	return "❌ Tidak ada transaksi untuk dihapus"
}

// Profit renders today's summary. The headline shows the absolute value and
// switches wording on the sign.
func (f *Formatter) Profit(s ledger.ProfitSummary) string {
	profit := s.Profit()
	icon, label := "🎉", "UNTUNG"
	if profit < 0 {
		icon, label = "😰", "RUGI"
		profit = -profit
	}

	var b strings.Builder
	b.WriteString("📊 LAPORAN KEUNTUNGAN HARI INI\n")
	fmt.Fprintf(&b, "📅 %s\n\n", s.Date.In(f.loc).Format(dateLayout))
	fmt.Fprintf(&b, "💰 Pemasukan: %s\n", f.Money(s.IncomeTotal))
	fmt.Fprintf(&b, "   └ %d transaksi\n\n", s.IncomeCount)
	fmt.Fprintf(&b, "💸 Pengeluaran: %s\n", f.Money(s.OutgoingTotal))
	fmt.Fprintf(&b, "   └ %d transaksi\n\n", s.OutgoingCount)
	fmt.Fprintf(&b, "%s %s: %s\n\n", icon, label, f.Money(profit))
	fmt.Fprintf(&b, "📈 Margin: %s%%", formatMargin(s))
	return b.String()
}

func formatMargin(s ledger.ProfitSummary) string {
	if s.IncomeTotal <= 0 {
		return "0"
	}
	return strconv.FormatFloat(s.Margin(), 'f', 1, 64)
}

// PeriodTitle is the heading used for a report window.
func PeriodTitle(p core.Period) string {
	switch p {
	case core.Weekly:
		return "7 HARI TERAKHIR"
	case core.Monthly:
		return "30 HARI TERAKHIR"
	default:
		return "HARI INI"
	}
}

// Report renders a period report, or the empty form when nothing matched.
func (f *Formatter) Report(r ledger.Report) string {
	if r.IsEmpty() {
		return f.EmptyReport(r.Period)
	}

	icon := "🎉"
	if r.Profit() < 0 {
		icon = "😰"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 LAPORAN %s\n\n", PeriodTitle(r.Period))
	fmt.Fprintf(&b, "💰 Total Pemasukan: %s\n", f.Money(r.IncomeTotal))
	fmt.Fprintf(&b, "💸 Total Pengeluaran: %s\n", f.Money(r.OutgoingTotal))
	fmt.Fprintf(&b, "%s Keuntungan: %s", icon, f.Money(r.Profit()))

	if len(r.Items) > 0 {
		b.WriteString("\n\n📈 ITEM TERJUAL:")
		for _, it := range r.Items {
			fmt.Fprintf(&b, "\n• %s: %dx - %s", it.Item, it.Quantity, f.Money(it.Total))
		}
	}
	return b.String()
}

func (f *Formatter) EmptyReport(p core.Period) string {
	return "📊 Tidak ada transaksi untuk periode " + strings.ToLower(PeriodTitle(p))
}

func (f *Formatter) Help() string {
	p := f.prefix
	var b strings.Builder
	b.WriteString("🤖 BOT WARUNG PECEL LELE\n\n")
	b.WriteString("📝 PERINTAH UTAMA:\n")
	fmt.Fprintf(&b, "%smasuk [item] [harga] [jumlah] - Catat penjualan\n", p)
	fmt.Fprintf(&b, "%skeluar [item] [jumlah] - Catat pengeluaran\n", p)
	fmt.Fprintf(&b, "%sbelanja [item] [jumlah] - Catat belanja\n", p)
	fmt.Fprintf(&b, "%suntung - Keuntungan hari ini\n", p)
	fmt.Fprintf(&b, "%slaporan [periode] - Laporan (harian/mingguan/bulanan)\n", p)
	fmt.Fprintf(&b, "%smenu - Lihat daftar menu\n", p)
	fmt.Fprintf(&b, "%shapus - Hapus transaksi terakhir\n\n", p)
	b.WriteString("📝 CONTOH PENGGUNAAN:\n")
	fmt.Fprintf(&b, "%smasuk lele-bakar 12000 2\n", p)
	fmt.Fprintf(&b, "%skeluar gas 25000\n", p)
	fmt.Fprintf(&b, "%sbelanja bumbu 50000\n", p)
	fmt.Fprintf(&b, "%slaporan mingguan\n\n", p)
	b.WriteString("💡 Tips: Gunakan tanda (-) untuk spasi pada nama item")
	return b.String()
}

// Usage is the corrective hint for a command missing its arguments.
func (f *Formatter) Usage(name command.Name) string {
	p := f.prefix
	switch name {
	case command.RecordIncome:
		return fmt.Sprintf("❌ Format salah!\n\n📝 Contoh:\n%[1]smasuk ayam-goreng 15000 2\n%[1]smasuk lele-bakar 12000 1\n\nFormat: %[1]smasuk [item] [harga] [jumlah]", p)
	case command.RecordExpense:
		return fmt.Sprintf("❌ Format salah!\n\n📝 Contoh:\n%[1]skeluar gas 25000\n%[1]skeluar listrik 100000\n\nFormat: %[1]skeluar [item] [jumlah]", p)
	case command.RecordPurchase:
		return fmt.Sprintf("❌ Format salah!\n\n📝 Contoh:\n%[1]sbelanja lele 200000\n%[1]sbelanja bumbu 50000\n\nFormat: %[1]sbelanja [item] [jumlah]", p)
	default:
		return "❌ Format salah!\n\n" + f.Help()
	}
}

// Validation is the corrective reply for an unusable argument.
func (f *Formatter) Validation(err *command.ValidationError) string {
	switch err.Field {
	case "price":
		return "❌ Harga harus berupa angka positif!"
	case "item":
		return "❌ Nama item tidak boleh kosong!"
	default:
		return "❌ Jumlah harus berupa angka positif!"
	}
}

func (f *Formatter) Unrecognized() string {
	return fmt.Sprintf("❌ Perintah tidak dikenali.\nKetik %shelp untuk melihat daftar perintah.", f.prefix)
}

func (f *Formatter) Failure() string {
	return "❌ Terjadi kesalahan. Silakan coba lagi atau hubungi admin."
}

// Online is the notice sent to the bot's own conversation at startup.
func (f *Formatter) Online() string {
	return fmt.Sprintf("🤖 Bot Warung Pecel Lele ONLINE!\n\nKetik %shelp untuk melihat daftar perintah.", f.prefix)
}
