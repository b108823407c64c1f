package wire

import (
	"fmt"

	"github.com/roach88/pantry/internal/ir"
)

// Dialect selects the command keywords and acknowledgement text.
type Dialect string

const (
	// English is the default dialect.
	English Dialect = "en"

	// Italian is the legacy dialect, kept for transcripts recorded with it.
	Italian Dialect = "it"
)

// Dialects lists the supported dialects.
var Dialects = []Dialect{English, Italian}

type vocabulary struct {
	keywords map[string]ir.Kind
	acks     map[ir.Ack]string
	unknown  string // prefix, followed by the token
	empty    string
}

var vocabularies = map[Dialect]vocabulary{
	English: {
		keywords: map[string]ir.Kind{
			"add_recipe":    ir.KindAddRecipe,
			"remove_recipe": ir.KindRemoveRecipe,
			"resupply":      ir.KindResupply,
			"order":         ir.KindOrder,
		},
		acks: map[ir.Ack]string{
			ir.AckAdded:         "added",
			ir.AckIgnored:       "ignored",
			ir.AckRemoved:       "removed",
			ir.AckNotPresent:    "not present",
			ir.AckPendingOrders: "pending orders",
			ir.AckRestocked:     "restocked",
			ir.AckAccepted:      "accepted",
			ir.AckRejected:      "rejected",
		},
		unknown: "unknown command: ",
		empty:   "empty truck",
	},
	Italian: {
		keywords: map[string]ir.Kind{
			"aggiungi_ricetta": ir.KindAddRecipe,
			"rimuovi_ricetta":  ir.KindRemoveRecipe,
			"rifornimento":     ir.KindResupply,
			"ordine":           ir.KindOrder,
		},
		acks: map[ir.Ack]string{
			ir.AckAdded:         "aggiunta",
			ir.AckIgnored:       "ignorato",
			ir.AckRemoved:       "rimossa",
			ir.AckNotPresent:    "non presente",
			ir.AckPendingOrders: "ordini in sospeso",
			ir.AckRestocked:     "rifornito",
			ir.AckAccepted:      "accettato",
			ir.AckRejected:      "rifiutato",
		},
		unknown: "Comando non esistente: ",
		empty:   "camioncino vuoto",
	},
}

// ParseDialect validates a dialect name. The empty string selects English.
func ParseDialect(s string) (Dialect, error) {
	if s == "" {
		return English, nil
	}
	d := Dialect(s)
	if _, ok := vocabularies[d]; !ok {
		return "", fmt.Errorf("unknown dialect %q: must be one of %v", s, Dialects)
	}
	return d, nil
}

func (d Dialect) vocab() vocabulary {
	if v, ok := vocabularies[d]; ok {
		return v
	}
	return vocabularies[English]
}

// Keyword returns the input keyword for kind in this dialect, or "" for
// KindUnknown.
func (d Dialect) Keyword(kind ir.Kind) string {
	for kw, k := range d.vocab().keywords {
		if k == kind {
			return kw
		}
	}
	return ""
}

// AckText renders an acknowledgement. token is only used for
// ir.AckUnrecognized.
func (d Dialect) AckText(ack ir.Ack, token string) string {
	v := d.vocab()
	if ack == ir.AckUnrecognized {
		return v.unknown + token
	}
	return v.acks[ack]
}

// EmptyLoad is the line printed for a dispatch that loaded nothing.
func (d Dialect) EmptyLoad() string {
	return d.vocab().empty
}
