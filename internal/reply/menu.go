package reply

import (
	"fmt"
	"strings"
)

// MenuItem is one dish and its list price.
type MenuItem struct {
	Name  string
	Price int64
}

// MenuSection groups dishes under an icon and a heading.
type MenuSection struct {
	Icon  string
	Title string
	Items []MenuItem
}

// DefaultMenu is the stall's price list.
var DefaultMenu = []MenuSection{
	{Icon: "🐟", Title: "LELE", Items: []MenuItem{
		{Name: "Lele Bakar", Price: 12000},
		{Name: "Lele Goreng", Price: 10000},
	}},
	{Icon: "🐔", Title: "AYAM", Items: []MenuItem{
		{Name: "Ayam Bakar", Price: 15000},
		{Name: "Ayam Goreng", Price: 13000},
	}},
	{Icon: "🥤", Title: "MINUMAN", Items: []MenuItem{
		{Name: "Es Teh", Price: 3000},
		{Name: "Es Jeruk", Price: 4000},
		{Name: "Air Mineral", Price: 2000},
	}},
}

func (f *Formatter) Menu() string {
	var b strings.Builder
	b.WriteString("🍽️ MENU WARUNG PECEL LELE\n\n")
	for _, s := range f.menu {
		fmt.Fprintf(&b, "%s %s:\n", s.Icon, s.Title)
		for _, it := range s.Items {
			fmt.Fprintf(&b, "• %s - %s\n", it.Name, f.Money(it.Price))
		}
		b.WriteString("\n")
	}
	b.WriteString("💡 Tips: Gunakan nama menu saat mencatat penjualan\n")
	fmt.Fprintf(&b, "Contoh: %smasuk lele-bakar 12000 2", f.prefix)
	return b.String()
}
