package ui

import (
	"hash/fnv"

	"github.com/charmbracelet/lipgloss"
)

var (
	authorPalette = []lipgloss.Color{
		lipgloss.Color("111"),
		lipgloss.Color("157"),
		lipgloss.Color("216"),
		lipgloss.Color("36"),
		lipgloss.Color("183"),
		lipgloss.Color("230"),
	}

	chipOnBg    = lipgloss.Color("61")
	chipOffBg   = lipgloss.Color("238")
	headerColor = lipgloss.Color("252")
	dimColor    = lipgloss.Color("243")
	errorColor  = lipgloss.Color("203")
	toastBg     = lipgloss.Color("24")
	cursorBg    = lipgloss.Color("236")
	mentionFg   = lipgloss.Color("222")
)

func colorForAuthor(key string) lipgloss.Color {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return authorPalette[int(h.Sum32()%uint32(len(authorPalette)))]
}
