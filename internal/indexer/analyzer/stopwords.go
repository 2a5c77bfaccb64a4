package analyzer

func stopWordsFor(lang Language) map[string]struct{} {
	if lang == English {
		return englishStopWords
	}
	return italianStopWords
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Entries are accent-folded because lookup happens after folding.
var italianStopWords = wordSet(
	// elided articles and prepositions ("l'acqua", "dell'anno")
	"c", "l", "all", "dall", "dell", "nell", "sull", "coll", "pell",
	"gl", "agl", "dagl", "degl", "negl", "sugl", "un", "m", "t", "s", "v", "d",

	"ad", "al", "allo", "ai", "agli", "alla", "alle",
	"con", "col", "coi",
	"da", "dal", "dallo", "dai", "dagli", "dalla", "dalle",
	"di", "del", "dello", "dei", "degli", "della", "delle",
	"in", "nel", "nello", "nei", "negli", "nella", "nelle",
	"su", "sul", "sullo", "sui", "sugli", "sulla", "sulle",
	"per", "tra", "contro",
	"io", "tu", "lui", "lei", "noi", "voi", "loro",
	"mio", "mia", "miei", "mie", "tuo", "tua", "tuoi", "tue",
	"suo", "sua", "suoi", "sue", "nostro", "nostra", "nostri", "nostre",
	"vostro", "vostra", "vostri", "vostre",
	"mi", "ti", "ci", "vi", "lo", "la", "li", "le", "gli", "ne",
	"il", "uno", "una", "ma", "ed", "se", "perche", "anche", "come",
	"dov", "dove", "che", "chi", "cui", "non", "piu", "quale",
	"quanto", "quanti", "quanta", "quante",
	"quello", "quelli", "quella", "quelle",
	"questo", "questi", "questa", "queste",
	"si", "tutto", "tutti", "a", "e", "i", "o",

	"ho", "hai", "ha", "abbiamo", "avete", "hanno", "abbia", "abbiate", "abbiano",
	"avro", "avrai", "avra", "avremo", "avrete", "avranno",
	"avrei", "avresti", "avrebbe", "avremmo", "avreste", "avrebbero",
	"avevo", "avevi", "aveva", "avevamo", "avevate", "avevano",
	"ebbi", "avesti", "ebbe", "avemmo", "aveste", "ebbero",
	"avessi", "avesse", "avessimo", "avessero", "avendo",
	"avuto", "avuta", "avuti", "avute",

	"sono", "sei", "siamo", "siete", "sia", "siate", "siano",
	"saro", "sarai", "sara", "saremo", "sarete", "saranno",
	"sarei", "saresti", "sarebbe", "saremmo", "sareste", "sarebbero",
	"ero", "eri", "era", "eravamo", "eravate", "erano",
	"fui", "fosti", "fu", "fummo", "foste", "furono",
	"fossi", "fosse", "fossimo", "fossero", "essendo",

	"faccio", "fai", "facciamo", "fanno", "faccia", "facciate", "facciano",
	"faro", "farai", "fara", "faremo", "farete", "faranno",
	"farei", "faresti", "farebbe", "faremmo", "fareste", "farebbero",
	"facevo", "facevi", "faceva", "facevamo", "facevate", "facevano",
	"feci", "facesti", "fece", "facemmo", "faceste", "fecero",
	"facessi", "facesse", "facessimo", "facessero", "facendo",

	"sto", "stai", "sta", "stiamo", "stanno", "stia", "stiate", "stiano",
	"staro", "starai", "stara", "staremo", "starete", "staranno",
	"starei", "staresti", "starebbe", "staremmo", "stareste", "starebbero",
	"stavo", "stavi", "stava", "stavamo", "stavate", "stavano",
	"stetti", "stesti", "stette", "stemmo", "steste", "stettero",
	"stessi", "stesse", "stessimo", "stessero", "stando",
)

var englishStopWords = wordSet(
	"a", "an", "and", "are", "as", "at",
	"be", "by", "for", "from", "has", "he",
	"in", "is", "it", "its", "of", "on",
	"or", "that", "the", "to", "was", "were",
	"will", "with", "this", "but", "they",
	"have", "had", "what", "when", "where",
	"who", "which", "their", "if", "each",
	"do", "not", "no", "so", "can",
)
