package console

import "strconv"

type rgb struct {
	r int
	g int
	b int
}

type theme struct {
	Name    string
	EchoFG  rgb
	ErrorFG rgb
	WarnFG  rgb
	OKFG    rgb
	MetaFG  rgb
}

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiDim   = "\x1b[2m"
)

// DefaultTheme is used when the configured theme is unknown.
const DefaultTheme = "outrun"

var themes = map[string]theme{
	"outrun": {
		Name:    "outrun",
		EchoFG:  rgb{r: 0, g: 229, b: 255},
		ErrorFG: rgb{r: 255, g: 107, b: 107},
		WarnFG:  rgb{r: 255, g: 91, b: 189},
		OKFG:    rgb{r: 112, g: 214, b: 255},
		MetaFG:  rgb{r: 154, g: 163, b: 178},
	},
	"gruvbox": {
		Name:    "gruvbox",
		EchoFG:  rgb{r: 250, g: 189, b: 47},
		ErrorFG: rgb{r: 251, g: 73, b: 52},
		WarnFG:  rgb{r: 214, g: 93, b: 14},
		OKFG:    rgb{r: 184, g: 187, b: 38},
		MetaFG:  rgb{r: 146, g: 131, b: 116},
	},
	"tokyo-midnight": {
		Name:    "tokyo-midnight",
		EchoFG:  rgb{r: 122, g: 162, b: 247},
		ErrorFG: rgb{r: 247, g: 118, b: 142},
		WarnFG:  rgb{r: 224, g: 175, b: 104},
		OKFG:    rgb{r: 158, g: 206, b: 106},
		MetaFG:  rgb{r: 127, g: 133, b: 163},
	},
}

// ThemeNames lists the built-in themes.
func ThemeNames() []string {
	return []string{"outrun", "gruvbox", "tokyo-midnight"}
}

func themeForName(name string) theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes[DefaultTheme]
}

func ansiFgRGB(c rgb) string {
	return "\x1b[38;2;" + strconv.Itoa(c.r) + ";" + strconv.Itoa(c.g) + ";" + strconv.Itoa(c.b) + "m"
}
