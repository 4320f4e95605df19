package hotkey

import (
	"fmt"
	"runtime"
	"strings"
)

// navigationKeys are the key releases that can move a text selection.
var navigationKeys = []string{"left", "right", "up", "down", "home", "end", "space", "enter"}

// windowsKeys maps key names to Windows virtual key codes. Modifiers carry both
// the left and right variants.
var windowsKeys = map[string][]uint16{
	"ctrl":      {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":       {164, 165}, // VK_LMENU, VK_RMENU
	"shift":     {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":       {91, 92},   // VK_LWIN, VK_RWIN
	"space":     {32},
	"enter":     {13},
	"esc":       {27},
	"tab":       {9},
	"backspace": {8},
	"delete":    {46},
	"insert":    {45},
	"home":      {36},
	"end":       {35},
	"pageup":    {33},
	"pagedown":  {34},
	"left":      {37},
	"up":        {38},
	"right":     {39},
	"down":      {40},
}

// darwinKeys maps key names to macOS virtual key codes (kVK_*).
var darwinKeys = map[string][]uint16{
	"ctrl":      {59, 62},
	"alt":       {58, 61},
	"shift":     {56, 60},
	"cmd":       {55, 54},
	"space":     {49},
	"enter":     {36, 76},
	"esc":       {53},
	"tab":       {48},
	"backspace": {51},
	"delete":    {117},
	"insert":    {114},
	"home":      {115},
	"end":       {119},
	"pageup":    {116},
	"pagedown":  {121},
	"left":      {123},
	"right":     {124},
	"down":      {125},
	"up":        {126},

	"a": {0}, "s": {1}, "d": {2}, "f": {3}, "h": {4}, "g": {5}, "z": {6}, "x": {7},
	"c": {8}, "v": {9}, "b": {11}, "q": {12}, "w": {13}, "e": {14}, "r": {15},
	"y": {16}, "t": {17}, "o": {31}, "u": {32}, "i": {34}, "p": {35}, "l": {37},
	"j": {38}, "k": {40}, "n": {45}, "m": {46},

	"1": {18}, "2": {19}, "3": {20}, "4": {21}, "6": {22}, "5": {23}, "9": {25},
	"7": {26}, "8": {28}, "0": {29},

	"f1": {122}, "f2": {120}, "f3": {99}, "f4": {118}, "f5": {96}, "f6": {97},
	"f7": {98}, "f8": {100}, "f9": {101}, "f10": {109}, "f11": {103}, "f12": {111},
	"f13": {105}, "f14": {107}, "f15": {113}, "f16": {106}, "f17": {64}, "f18": {79},
	"f19": {80}, "f20": {90},
}

var aliases = map[string]string{
	"control": "ctrl",
	"option":  "alt",
	"opt":     "alt",
	"win":     "cmd",
	"super":   "cmd",
	"command": "cmd",
	"return":  "enter",
	"escape":  "esc",
	"del":     "delete",
	"ins":     "insert",
	"pgup":    "pageup",
	"pgdn":    "pagedown",
}

func init() {
	for c := 'a'; c <= 'z'; c++ {
		windowsKeys[string(c)] = []uint16{uint16('A' + c - 'a')}
	}
	for c := '0'; c <= '9'; c++ {
		windowsKeys[string(c)] = []uint16{uint16(c)}
	}
	for i := 1; i <= 24; i++ {
		windowsKeys[fmt.Sprintf("f%d", i)] = []uint16{uint16(111 + i)} // VK_F1 = 112
	}
}

// Keymap resolves key names to the rawcodes gohook reports on one platform.
type Keymap map[string][]uint16

// KeymapFor returns the keymap of the given GOOS. Unknown platforms use the
// Windows table, which matches gohook's X11 fallback for letters and digits only.
func KeymapFor(goos string) Keymap {
	if goos == "darwin" {
		return darwinKeys
	}
	return windowsKeys
}

// PlatformKeymap returns the keymap of the running platform.
func PlatformKeymap() Keymap { return KeymapFor(runtime.GOOS) }

// Rawcodes returns the rawcodes of a key name, or nil when it is unknown.
func (k Keymap) Rawcodes(name string) []uint16 {
	return k[normalizeKey(name)]
}

func normalizeKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[name]; ok {
		return canonical
	}
	return name
}

// parseHotkey converts a hotkey string like "Cmd+Shift+F" to normalized key names.
func parseHotkey(combo string) []string {
	var keys []string
	for _, part := range strings.Split(combo, "+") {
		if part = normalizeKey(part); part != "" {
			keys = append(keys, part)
		}
	}
	return keys
}
