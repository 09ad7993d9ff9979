package trading

import "fmt"

// Line is a quantity of a single item.
type Line struct {
	ItemID string
	Qty    int64
}

func (l Line) String() string {
	return fmt.Sprintf("%dx %s", l.Qty, l.ItemID)
}

// Offer is what the creator puts up. It is either a SingleOffer or a
// BundleOffer.
type Offer interface {
	Lines() []Line
	isOffer()
}

type SingleOffer struct {
	Line
}

func (o SingleOffer) Lines() []Line { return []Line{o.Line} }
func (SingleOffer) isOffer()        {}

type BundleOffer struct {
	Items []Line
}

func (o BundleOffer) Lines() []Line {
	out := make([]Line, len(o.Items))
	copy(out, o.Items)
	return out
}
func (BundleOffer) isOffer() {}

// Request is what the creator wants back. It is either a SpecificRequest
// or an AnyRequest.
type Request interface {
	isRequest()
}

type SpecificRequest struct {
	Line
}

func (SpecificRequest) isRequest() {}

// AnyRequest accepts any bid. Preferred is only a hint shown to bidders.
type AnyRequest struct {
	Preferred *Line
}

func (AnyRequest) isRequest() {}

func validateOffer(o Offer) error {
	switch v := o.(type) {
	case SingleOffer:
		if v.ItemID == "" || v.Qty <= 0 {
			return fmt.Errorf("%w: offer needs an item and a positive quantity", ErrInvalidInput)
		}
	case BundleOffer:
		if len(v.Items) == 0 {
			return fmt.Errorf("%w: bundle offer has no items", ErrInvalidInput)
		}
		seen := make(map[string]struct{}, len(v.Items))
		for _, l := range v.Items {
			if l.ItemID == "" || l.Qty <= 0 {
				return fmt.Errorf("%w: bundle line %q needs a positive quantity", ErrInvalidInput, l.ItemID)
			}
			if _, dup := seen[l.ItemID]; dup {
				return fmt.Errorf("%w: %s appears twice in bundle", ErrInvalidInput, l.ItemID)
			}
			seen[l.ItemID] = struct{}{}
		}
	case nil:
		return fmt.Errorf("%w: missing offer", ErrInvalidInput)
	default:
		return fmt.Errorf("%w: unknown offer %T", ErrInvalidInput, o)
	}
	return nil
}

func validateRequest(r Request, kind Kind) error {
	switch v := r.(type) {
	case SpecificRequest:
		if v.ItemID == "" || v.Qty <= 0 {
			return fmt.Errorf("%w: request needs an item and a positive quantity", ErrInvalidInput)
		}
	case AnyRequest:
		if kind == KindFixed {
			return fmt.Errorf("%w: fixed trades must name the item they want", ErrInvalidInput)
		}
		if v.Preferred != nil && (v.Preferred.ItemID == "" || v.Preferred.Qty <= 0) {
			return fmt.Errorf("%w: preferred item needs a positive quantity", ErrInvalidInput)
		}
	case nil:
		return fmt.Errorf("%w: missing request", ErrInvalidInput)
	default:
		return fmt.Errorf("%w: unknown request %T", ErrInvalidInput, r)
	}
	return nil
}

// requestItems lists the catalog items a request refers to.
func requestItems(r Request) []string {
	switch v := r.(type) {
	case SpecificRequest:
		return []string{v.ItemID}
	case AnyRequest:
		if v.Preferred != nil {
			return []string{v.Preferred.ItemID}
		}
	}
	return nil
}

func cloneRequest(r Request) Request {
	if v, ok := r.(AnyRequest); ok && v.Preferred != nil {
		p := *v.Preferred
		return AnyRequest{Preferred: &p}
	}
	return r
}

func cloneOffer(o Offer) Offer {
	if v, ok := o.(BundleOffer); ok {
		return BundleOffer{Items: v.Lines()}
	}
	return o
}
