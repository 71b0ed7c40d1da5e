package registry

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophbackup/internal/common"
)

// Tier is the storage tier of a file.
type Tier int

const (
	TierHot Tier = iota
	TierCold
)

func (t Tier) String() string {
	switch t {
	case TierHot:
		return "hot"
	case TierCold:
		return "cold"
	default:
		return "unknown"
	}
}

// ParseTier is the inverse of Tier.String.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "hot":
		return TierHot, nil
	case "cold":
		return TierCold, nil
	default:
		return 0, fmt.Errorf("%w: unknown tier %q", common.ErrorValidation, s)
	}
}

// FileRecord says where the single physical copy of a logical file lives.
// A hot record's StorageName equals LogicalName; a cold record's never does.
type FileRecord struct {
	LogicalName string
	StorageName string
	Tier        Tier
}

// NewRecord derives the tier from the two names and validates both.
func NewRecord(logicalName, storageName string) (FileRecord, error) {
	if err := ValidateName(logicalName); err != nil {
		return FileRecord{}, err
	}
	if err := ValidateName(storageName); err != nil {
		return FileRecord{}, fmt.Errorf("storage name: %w", err)
	}
	tier := TierHot
	if storageName != logicalName {
		tier = TierCold
	}
	return FileRecord{LogicalName: logicalName, StorageName: storageName, Tier: tier}, nil
}

// ValidateName rejects names that break the snapshot line format or escape
// the storage directories.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", common.ErrorValidation)
	case name == "." || name == "..":
		return fmt.Errorf("%w: invalid name %q", common.ErrorValidation, name)
	case strings.ContainsAny(name, " \r\n"):
		return fmt.Errorf("%w: name %q contains whitespace", common.ErrorValidation, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: name %q contains a path separator", common.ErrorValidation, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: name contains NUL", common.ErrorValidation)
	}
	return nil
}
