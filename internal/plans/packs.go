package plans

import "math"

// Pack is a one-time message add-on. Packs never recur; the messages are
// added on top of the current plan quota.
type Pack struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Messages int     `json:"messages"`
	Price    int     `json:"price"`
	PerMsg   float64 `json:"price_per_message"`
}

func newPack(id, name string, messages, price int) Pack {
	return Pack{
		ID:       id,
		Name:     name,
		Messages: messages,
		Price:    price,
		PerMsg:   math.Round(float64(price)/float64(messages)*10000) / 10000,
	}
}

var packOrder = []string{"pack_100", "pack_500", "pack_1000"}

var packs = map[string]Pack{
	"pack_100":  newPack("pack_100", "100 messages", 100, 5),
	"pack_500":  newPack("pack_500", "500 messages", 500, 20),
	"pack_1000": newPack("pack_1000", "1000 messages", 1000, 35),
}

// GetPack returns the pack for id
func GetPack(id string) (Pack, bool) {
	p, ok := packs[id]
	return p, ok
}

// AllPacks returns every pack in display order
func AllPacks() []Pack {
	out := make([]Pack, 0, len(packOrder))
	for _, id := range packOrder {
		out = append(out, packs[id])
	}
	return out
}
