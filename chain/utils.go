package chain

import (
	"fmt"
	"strconv"
	"strings"
)

// Junction is one step of a substrate derivation path: "//name" is hard,
// "/name" is soft.
type Junction struct {
	Name string
	Hard bool
}

func (j Junction) String() string {
	if j.Hard {
		return "//" + j.Name
	}
	return "/" + j.Name
}

// ParseJunctions accepts "" or a path such as "//polkadot//0/1".
func ParseJunctions(path string) ([]Junction, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, nil
	}
	if !strings.HasPrefix(p, "/") {
		return nil, fmt.Errorf("%w: %q must start with /", ErrInvalidPath, path)
	}

	var junctions []Junction
	for len(p) > 0 {
		hard := strings.HasPrefix(p, "//")
		if hard {
			p = p[2:]
		} else {
			p = p[1:]
		}
		end := strings.Index(p, "/")
		if end < 0 {
			end = len(p)
		}
		name := p[:end]
		if name == "" {
			return nil, fmt.Errorf("%w: empty junction in %q", ErrInvalidPath, path)
		}
		if strings.ContainsAny(name, " \t") {
			return nil, fmt.Errorf("%w: junction %q contains whitespace", ErrInvalidPath, name)
		}
		junctions = append(junctions, Junction{Name: name, Hard: hard})
		p = p[end:]
	}
	return junctions, nil
}

// DerivationSuffix builds the junction suffix for a wallet index. Index 0
// with no prefix derives the root key of the phrase.
func DerivationSuffix(prefix string, index uint32) (string, error) {
	junctions, err := ParseJunctions(prefix)
	if err != nil {
		return "", err
	}
	if index > 0 {
		junctions = append(junctions, Junction{Name: strconv.FormatUint(uint64(index), 10), Hard: true})
	}
	var b strings.Builder
	for _, j := range junctions {
		b.WriteString(j.String())
	}
	return b.String(), nil
}
