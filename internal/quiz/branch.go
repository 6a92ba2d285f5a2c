package quiz

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Branch is one of the five engineering branches the quiz can recommend.
type Branch int

const (
	ComputerIT Branch = iota + 1
	ElectronicsTelecom
	Civil
	Mechanical
	Electrical
)

// AllBranches lists every Branch in declaration order.
var AllBranches = []Branch{ComputerIT, ElectronicsTelecom, Civil, Mechanical, Electrical}

var branchInfo = map[Branch]struct{ label, description string }{
	ComputerIT: {
		"Computer Engineering and Information Technology",
		"Focus on software development, programming, algorithms, and computer systems. High demand in IT industry with excellent career prospects.",
	},
	ElectronicsTelecom: {
		"Electronics and Telecommunication",
		"Work with electronic circuits, communication systems, signal processing, and embedded systems. Growing field with IoT and smart device development.",
	},
	Civil: {
		"Civil Engineering",
		"Design and construct infrastructure, buildings, roads, and bridges. Fundamental field with steady demand in construction and urban development.",
	},
	Mechanical: {
		"Mechanical Engineering",
		"Deal with mechanical systems, manufacturing, automotive, and industrial processes. Versatile field with applications across many industries.",
	},
	Electrical: {
		"Electrical Engineering",
		"Work with power systems, electrical machines, control systems, and renewable energy. Essential field for power generation and distribution.",
	},
}

func (b Branch) Valid() bool {
	_, ok := branchInfo[b]
	return ok
}

// Label is the display name stored in suggested_branches.
func (b Branch) Label() string {
	if i, ok := branchInfo[b]; ok {
		return i.label
	}
	return fmt.Sprintf("Branch(%d)", int(b))
}

func (b Branch) Description() string {
	if i, ok := branchInfo[b]; ok {
		return i.description
	}
	return "Excellent engineering field with diverse opportunities."
}

func (b Branch) String() string { return b.Label() }

// ParseBranch resolves a label, case-insensitively.
func ParseBranch(s string) (Branch, error) {
	s = strings.TrimSpace(s)
	for _, b := range AllBranches {
		if strings.EqualFold(b.Label(), s) {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown branch %q", s)
}

func (b Branch) MarshalJSON() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("invalid branch %d", int(b))
	}
	return json.Marshal(b.Label())
}

func (b *Branch) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseBranch(s)
	if err != nil {
		return err
	}
	*b = v
	return nil
}
