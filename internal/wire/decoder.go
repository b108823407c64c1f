package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/pantry/internal/ir"
)

// ErrMissingHeader is returned when the input ends before the header record.
var ErrMissingHeader = errors.New("missing header record")

// maxLineBytes bounds a single record.
const maxLineBytes = 1 << 20

// Header is the first record of a stream.
type Header struct {
	Period   int64
	Capacity int64
}

// DecodeError reports a record that could not be decoded.
// Decode errors are fatal: the stream cannot be resynchronised.
type DecodeError struct {
	Line   int
	Text   string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// Decoder reads a header followed by command records, one per line.
type Decoder struct {
	scanner *bufio.Scanner
	dialect Dialect
	line    int
	header  bool
}

// NewDecoder creates a decoder reading records in dialect d.
func NewDecoder(r io.Reader, d Dialect) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), maxLineBytes)
	return &Decoder{scanner: s, dialect: d}
}

// Line returns the number of the last line read.
func (d *Decoder) Line() int { return d.line }

// Header reads the header record. It must be called once, before Next.
func (d *Decoder) Header() (Header, error) {
	if d.header {
		return Header{}, errors.New("header already read")
	}
	text, ok, err := d.nextRecord()
	if err != nil {
		return Header{}, err
	}
	if !ok {
		return Header{}, ErrMissingHeader
	}
	d.header = true

	h, err := ParseHeader(text)
	if err != nil {
		return Header{}, &DecodeError{Line: d.line, Text: text, Reason: err.Error()}
	}
	return h, nil
}

// Next returns the next command. It returns io.EOF at the end of input.
// Blank lines are skipped and do not produce a command.
func (d *Decoder) Next() (ir.Command, error) {
	if !d.header {
		return nil, errors.New("header not read")
	}
	text, ok, err := d.nextRecord()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, io.EOF
	}

	cmd, err := ParseCommand(text, d.dialect)
	if err != nil {
		return nil, &DecodeError{Line: d.line, Text: text, Reason: err.Error()}
	}
	return cmd, nil
}

func (d *Decoder) nextRecord() (string, bool, error) {
	for d.scanner.Scan() {
		d.line++
		text := strings.TrimSpace(d.scanner.Text())
		if text != "" {
			return text, true, nil
		}
	}
	if err := d.scanner.Err(); err != nil {
		return "", false, fmt.Errorf("read line %d: %w", d.line+1, err)
	}
	return "", false, nil
}

// ParseHeader parses "<period> <capacity>"; both must be positive.
func ParseHeader(text string) (Header, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return Header{}, fmt.Errorf("header needs 2 fields, got %d", len(fields))
	}
	period, err := parsePositive("period", fields[0])
	if err != nil {
		return Header{}, err
	}
	capacity, err := parsePositive("capacity", fields[1])
	if err != nil {
		return Header{}, err
	}
	return Header{Period: period, Capacity: capacity}, nil
}

// ParseCommand decodes one non-blank record in dialect d.
// A record whose first token is not a keyword of d decodes to ir.Unknown.
func ParseCommand(text string, d Dialect) (ir.Command, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, errors.New("empty record")
	}
	if !utf8.ValidString(text) {
		return nil, errors.New("record is not valid UTF-8")
	}

	kind, ok := d.vocab().keywords[fields[0]]
	if !ok {
		return ir.Unknown{Token: fields[0]}, nil
	}
	args := fields[1:]

	switch kind {
	case ir.KindAddRecipe:
		return parseAddRecipe(args)
	case ir.KindRemoveRecipe:
		if len(args) != 1 {
			return nil, fmt.Errorf("remove_recipe takes 1 name, got %d fields", len(args))
		}
		return ir.RemoveRecipe{Name: normalize(args[0])}, nil
	case ir.KindResupply:
		return parseResupply(args)
	default:
		return parseOrder(args)
	}
}

func parseAddRecipe(args []string) (ir.Command, error) {
	if len(args) == 0 {
		return nil, errors.New("add_recipe needs a name")
	}
	if len(args[1:])%2 != 0 {
		return nil, fmt.Errorf("ingredient %q has no quantity", args[len(args)-1])
	}

	c := ir.AddRecipe{Name: normalize(args[0]), Ingredients: make([]ir.Ingredient, 0, len(args[1:])/2)}
	for i := 1; i < len(args); i += 2 {
		qty, err := parseQuantity("ingredient quantity", args[i+1])
		if err != nil {
			return nil, err
		}
		c.Ingredients = append(c.Ingredients, ir.Ingredient{Name: normalize(args[i]), Quantity: qty})
	}
	return c, nil
}

func parseResupply(args []string) (ir.Command, error) {
	if len(args)%3 != 0 {
		return nil, fmt.Errorf("resupply takes (ingredient quantity expiration) triples, got %d fields", len(args))
	}

	c := ir.Resupply{Lots: make([]ir.LotSpec, 0, len(args)/3)}
	for i := 0; i < len(args); i += 3 {
		qty, err := parseQuantity("lot quantity", args[i+1])
		if err != nil {
			return nil, err
		}
		exp, err := parseQuantity("lot expiration", args[i+2])
		if err != nil {
			return nil, err
		}
		c.Lots = append(c.Lots, ir.LotSpec{Ingredient: normalize(args[i]), Quantity: qty, Expiration: exp})
	}
	return c, nil
}

func parseOrder(args []string) (ir.Command, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("order takes a name and a quantity, got %d fields", len(args))
	}
	qty, err := parseQuantity("order quantity", args[1])
	if err != nil {
		return nil, err
	}
	return ir.PlaceOrder{Recipe: normalize(args[0]), Quantity: qty}, nil
}

func parseQuantity(what, s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not an integer", what, s)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s %d is negative", what, v)
	}
	return v, nil
}

func parsePositive(what, s string) (int64, error) {
	v, err := parseQuantity(what, s)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, fmt.Errorf("%s must be positive", what)
	}
	return v, nil
}

// normalize applies NFC so that canonically equal names share a key.
func normalize(s string) string {
	return norm.NFC.String(s)
}
