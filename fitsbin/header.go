package fitsbin

import (
	"fmt"
	"strconv"
	"strings"
)

// FITS Header Layout
// ==================
//
// A FITS header is a sequence of 80-byte "card images" packed into 2880-byte
// blocks. The final card is the bare keyword END; the remainder of the last
// block is space-filled.
//
// CARD FORMAT (80 bytes):
// -----------------------
// Offset | Size | Description
// -------|------|----------------------------------------------------------
// 0      | 8    | Keyword, left-justified, space-padded, uppercase
// 8      | 2    | "= " value indicator (omitted for commentary keywords)
// 10     | 20+  | Value: strings quoted from column 11, numbers and
//        |      | logicals right-justified to column 30
// ...    |      | Optional " / comment" after the value
//
// Integers, floats and logicals (T/F) are rendered in FITS fixed format.
// Strings are single-quoted with embedded quotes doubled, padded to at
// least 8 characters inside the quotes.

const (
	// BlockSize is the FITS logical record size. Headers and data units are
	// both padded to a multiple of this.
	BlockSize = 2880

	// CardSize is the size of one header card image.
	CardSize = 80
)

// Card is a single header keyword record.
type Card struct {
	Key     string
	Value   interface{}
	Comment string
}

// Header is an ordered set of cards for one HDU.
type Header struct {
	cards []Card
}

// NewHeader returns an empty header.
func NewHeader() *Header {
	return &Header{}
}

// Append adds a card to the end of the header without checking for
// duplicates.
func (h *Header) Append(key string, value interface{}, comment string) {
	h.cards = append(h.cards, Card{Key: strings.ToUpper(key), Value: value, Comment: comment})
}

// Set replaces the value of an existing card, or appends a new one.
func (h *Header) Set(key string, value interface{}, comment string) {
	key = strings.ToUpper(key)
	for i := range h.cards {
		if h.cards[i].Key == key {
			h.cards[i].Value = value
			if comment != "" {
				h.cards[i].Comment = comment
			}
			return
		}
	}
	h.Append(key, value, comment)
}

// Cards returns the cards in header order.
func (h *Header) Cards() []Card {
	return h.cards
}

// Has reports whether a keyword is present.
func (h *Header) Has(key string) bool {
	_, ok := h.lookup(key)
	return ok
}

func (h *Header) lookup(key string) (Card, bool) {
	key = strings.ToUpper(key)
	for _, c := range h.cards {
		if c.Key == key {
			return c, true
		}
	}
	return Card{}, false
}

// Int returns the value of a keyword as an integer.
func (h *Header) Int(key string) (int64, error) {
	c, ok := h.lookup(key)
	if !ok {
		return 0, fmt.Errorf("fitsbin: missing header key %q", key)
	}
	switch v := c.Value.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	}
	return 0, fmt.Errorf("fitsbin: header key %q is not an integer", key)
}

// Float returns the value of a keyword as a float.
func (h *Header) Float(key string) (float64, error) {
	c, ok := h.lookup(key)
	if !ok {
		return 0, fmt.Errorf("fitsbin: missing header key %q", key)
	}
	switch v := c.Value.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	return 0, fmt.Errorf("fitsbin: header key %q is not numeric", key)
}

// Str returns the value of a keyword as a string.
func (h *Header) Str(key string) (string, error) {
	c, ok := h.lookup(key)
	if !ok {
		return "", fmt.Errorf("fitsbin: missing header key %q", key)
	}
	switch v := c.Value.(type) {
	case string:
		return v, nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// formatCard renders one card into exactly CardSize bytes.
func formatCard(c Card) []byte {
	buf := make([]byte, CardSize)
	for i := range buf {
		buf[i] = ' '
	}
	copy(buf, c.Key)

	if c.Key == "END" || c.Key == "COMMENT" || c.Key == "HISTORY" {
		if s, ok := c.Value.(string); ok && s != "" {
			copy(buf[8:], s)
		}
		return buf
	}

	buf[8] = '='
	var val string
	rightJustify := true
	switch v := c.Value.(type) {
	case string:
		quoted := "'" + strings.ReplaceAll(v, "'", "''")
		for len(quoted) < 9 {
			quoted += " "
		}
		val = quoted + "'"
		rightJustify = false
	case bool:
		if v {
			val = "T"
		} else {
			val = "F"
		}
	case int:
		val = strconv.Itoa(v)
	case int64:
		val = strconv.FormatInt(v, 10)
	case uint32:
		val = strconv.FormatUint(uint64(v), 10)
	case float32:
		val = strconv.FormatFloat(float64(v), 'G', -1, 32)
	case float64:
		val = strconv.FormatFloat(v, 'G', -1, 64)
	default:
		val = fmt.Sprintf("%v", v)
	}

	pos := 10
	if rightJustify && len(val) < 20 {
		pos = 30 - len(val)
	}
	copy(buf[pos:], val)

	if c.Comment != "" {
		end := pos + len(val)
		if end < 30 {
			end = 30
		}
		copy(buf[end:], " / "+c.Comment)
	}
	return buf
}

// Encode renders the header, including the END card, padded with spaces to a
// multiple of BlockSize.
func (h *Header) Encode() []byte {
	var out []byte
	for _, c := range h.cards {
		out = append(out, formatCard(c)...)
	}
	out = append(out, formatCard(Card{Key: "END"})...)
	for len(out)%BlockSize != 0 {
		out = append(out, ' ')
	}
	return out
}

// parseCard decodes one 80-byte card image. Commentary and blank cards are
// returned with a nil value.
func parseCard(img []byte) Card {
	key := strings.TrimRight(string(img[0:8]), " ")
	c := Card{Key: key}
	if key == "" || key == "COMMENT" || key == "HISTORY" || key == "END" {
		c.Value = strings.TrimRight(string(img[8:]), " ")
		return c
	}
	if img[8] != '=' {
		c.Value = strings.TrimRight(string(img[8:]), " ")
		return c
	}

	rest := string(img[10:])
	if i := strings.IndexByte(rest, '\''); i >= 0 && strings.TrimSpace(rest[:i]) == "" {
		// Quoted string: scan for the closing quote, honouring doubled quotes.
		var sb strings.Builder
		j := i + 1
		for j < len(rest) {
			if rest[j] == '\'' {
				if j+1 < len(rest) && rest[j+1] == '\'' {
					sb.WriteByte('\'')
					j += 2
					continue
				}
				break
			}
			sb.WriteByte(rest[j])
			j++
		}
		c.Value = strings.TrimRight(sb.String(), " ")
		if k := strings.IndexByte(rest[j:], '/'); k >= 0 {
			c.Comment = strings.TrimSpace(rest[j+k+1:])
		}
		return c
	}

	valPart := rest
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		valPart = rest[:i]
		c.Comment = strings.TrimSpace(rest[i+1:])
	}
	valPart = strings.TrimSpace(valPart)
	switch valPart {
	case "T":
		c.Value = true
		return c
	case "F":
		c.Value = false
		return c
	}
	if n, err := strconv.ParseInt(valPart, 10, 64); err == nil {
		c.Value = n
		return c
	}
	if f, err := strconv.ParseFloat(valPart, 64); err == nil {
		c.Value = f
		return c
	}
	c.Value = valPart
	return c
}

// DecodeHeader parses header blocks until the END card. It returns the header
// and the number of bytes consumed (always a multiple of BlockSize).
func DecodeHeader(data []byte) (*Header, int, error) {
	h := NewHeader()
	for off := 0; ; off += CardSize {
		if off+CardSize > len(data) {
			return nil, 0, fmt.Errorf("fitsbin: header truncated before END card")
		}
		c := parseCard(data[off : off+CardSize])
		if c.Key == "END" {
			consumed := off + CardSize
			if rem := consumed % BlockSize; rem != 0 {
				consumed += BlockSize - rem
			}
			if consumed > len(data) {
				return nil, 0, fmt.Errorf("fitsbin: header padding truncated")
			}
			return h, consumed, nil
		}
		if c.Key == "" {
			continue
		}
		h.cards = append(h.cards, c)
	}
}

// DataSize returns the size in bytes of the data unit described by this
// header, before block padding. Random-group HDUs (GROUPS=T with NAXIS1=0)
// skip the first axis and include PCOUNT parameters per group.
func (h *Header) DataSize() (int64, error) {
	bitpix, err := h.Int("BITPIX")
	if err != nil {
		return 0, err
	}
	naxis, err := h.Int("NAXIS")
	if err != nil {
		return 0, err
	}
	if naxis == 0 {
		return 0, nil
	}

	elems := int64(1)
	groups := false
	if g, ok := h.lookup("GROUPS"); ok {
		if b, ok := g.Value.(bool); ok {
			groups = b
		}
	}
	for i := int64(1); i <= naxis; i++ {
		n, err := h.Int(fmt.Sprintf("NAXIS%d", i))
		if err != nil {
			return 0, err
		}
		if i == 1 && groups && n == 0 {
			continue
		}
		elems *= n
	}

	pcount, gcount := int64(0), int64(1)
	if h.Has("PCOUNT") {
		pcount, _ = h.Int("PCOUNT")
	}
	if h.Has("GCOUNT") {
		gcount, _ = h.Int("GCOUNT")
	}

	bytesPerElem := bitpix / 8
	if bytesPerElem < 0 {
		bytesPerElem = -bytesPerElem
	}
	return gcount * (pcount + elems) * bytesPerElem, nil
}

// PaddedDataSize returns DataSize rounded up to a multiple of BlockSize.
func (h *Header) PaddedDataSize() (int64, error) {
	n, err := h.DataSize()
	if err != nil {
		return 0, err
	}
	if rem := n % BlockSize; rem != 0 {
		n += BlockSize - rem
	}
	return n, nil
}
