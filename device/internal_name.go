package device

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// InternalName is "room/name", e.g. "living_room/floor_lamp". A name
// without a slash has no room.
type InternalName string

func (n InternalName) split() (string, string) {
	room, name, found := strings.Cut(string(n), "/")
	if !found {
		return "", room
	}

	return room, name
}

func title(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

func (n InternalName) Room() string {
	room, _ := n.split()
	return title(room)
}

func (n InternalName) Name() string {
	_, name := n.split()
	return title(name)
}

func (n InternalName) String() string {
	return string(n)
}
