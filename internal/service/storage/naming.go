package storage

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// ResultPrefix marks rendered result files.
const ResultPrefix = "result_"

const tokenLength = 8

// Allocation is the collision-resistant name assigned to one upload.
type Allocation struct {
	Base      string
	Timestamp int64
	Token     string
	Extension string
}

// Allocate derives a unique stored name from the client's filename.
func Allocate(original string, now time.Time) Allocation {
	base, ext := SplitExtension(original)
	return Allocation{
		Base:      SanitizeBase(base),
		Timestamp: now.Unix(),
		Token:     newToken(),
		Extension: ext,
	}
}

// newToken returns the first 8 hex digits of a random UUID (16^8 values).
func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:tokenLength]
}

// Name is the stored upload filename: {base}_{timestamp}_{token}.{ext}.
func (a Allocation) Name() string {
	return fmt.Sprintf("%s_%d_%s.%s", a.Base, a.Timestamp, a.Token, a.Extension)
}

// ResultName is the paired result filename.
func (a Allocation) ResultName() string {
	return ResultPrefix + a.Name()
}

// TimestampString is the timestamp component as it appears in the name.
func (a Allocation) TimestampString() string {
	return strconv.FormatInt(a.Timestamp, 10)
}

// SplitExtension returns the name before the last dot and the lowercased
// extension after it. Names without a dot have no extension.
func SplitExtension(filename string) (string, string) {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return filename, ""
	}
	return filename[:i], strings.ToLower(filename[i+1:])
}

// SanitizeBase strips directory components and keeps only [A-Za-z0-9_.-].
// Whitespace runs become a single underscore. An empty result becomes "upload".
func SanitizeBase(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" {
		name = ""
	}

	name = strings.Join(strings.Fields(name), "_")

	var b strings.Builder
	for _, r := range name {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '-') {
			b.WriteRune(r)
		}
	}

	cleaned := strings.Trim(b.String(), "._")
	if cleaned == "" {
		return "upload"
	}
	return cleaned
}

// ParseName recovers the allocation from a stored upload filename. A leading
// result prefix is part of the base, since uploads may carry it too.
func ParseName(name string) (Allocation, error) {
	stem, ext := SplitExtension(name)
	if ext == "" {
		return Allocation{}, fmt.Errorf("missing extension in %q", name)
	}

	parts := strings.Split(stem, "_")
	if len(parts) < 3 {
		return Allocation{}, fmt.Errorf("invalid stored filename %q", name)
	}

	token := parts[len(parts)-1]
	if len(token) != tokenLength {
		return Allocation{}, fmt.Errorf("invalid token in %q", name)
	}

	ts, err := strconv.ParseInt(parts[len(parts)-2], 10, 64)
	if err != nil {
		return Allocation{}, fmt.Errorf("invalid timestamp in %q: %w", name, err)
	}

	return Allocation{
		Base:      strings.Join(parts[:len(parts)-2], "_"),
		Timestamp: ts,
		Token:     token,
		Extension: ext,
	}, nil
}
