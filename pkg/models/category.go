package models

// Category routes a resolved message to a processing branch
type Category int

const (
	CategoryUnclassified Category = iota
	CategoryPlain
	CategoryAttachment
)

// String returns the category name used in logs
func (c Category) String() string {
	switch c {
	case CategoryPlain:
		return "plain"
	case CategoryAttachment:
		return "attachment"
	default:
		return "unclassified"
	}
}
