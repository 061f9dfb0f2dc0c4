package profanity

var builtinWords = map[string][]string{
	"en": {
		"fuck", "fucking", "fucker", "motherfucker", "shit", "bullshit", "bitch", "asshole",
		"bastard", "dickhead", "cunt", "wanker", "twat", "slut", "whore",
	},
	"de": {
		"scheiße", "scheisse", "scheiß", "scheiss", "arschloch", "arsch", "fotze", "wichser",
		"hurensohn", "schlampe", "missgeburt", "fick", "ficken", "verpiss", "spast",
	},
	"es": {
		"mierda", "puta", "puto", "cabrón", "cabron", "pendejo", "gilipollas", "joder",
		"coño", "verga", "culero", "chingada", "hijueputa",
	},
	"fr": {
		"merde", "putain", "connard", "connasse", "salope", "encule", "enculé", "batard",
		"bâtard", "pute", "nique",
	},
	"pt": {
		"merda", "porra", "caralho", "puta", "foda", "fodase", "cuzão", "arrombado", "viado",
	},
}
