package nlp

// Tag is a coarse part-of-speech class
type Tag string

// Tags assigned by LexiconChunker
const (
	TagOpen        Tag = "X"    // Open-class word, noun or verb decided by position
	TagProper      Tag = "NNP"  // Capitalized word
	TagNumber      Tag = "CD"   // Number
	TagPronoun     Tag = "PRP"  // Personal pronoun
	TagPossessive  Tag = "PRP$" // Possessive determiner
	TagDeterminer  Tag = "DT"
	TagPreposition Tag = "IN"
	TagConjunction Tag = "CC"
	TagAuxiliary   Tag = "AUX"
	TagAdverb      Tag = "RB"
	TagPunct       Tag = "."
)

var closedClass = map[string]Tag{
	// pronouns
	"i": TagPronoun, "you": TagPronoun, "he": TagPronoun, "she": TagPronoun,
	"it": TagPronoun, "we": TagPronoun, "they": TagPronoun, "me": TagPronoun,
	"him": TagPronoun, "us": TagPronoun, "them": TagPronoun,
	"who": TagPronoun, "someone": TagPronoun, "everyone": TagPronoun,

	// possessives; "her" and "his" are resolved by context
	"my": TagPossessive, "your": TagPossessive, "his": TagPossessive,
	"her": TagPossessive, "its": TagPossessive, "our": TagPossessive,
	"their": TagPossessive,

	// determiners
	"the": TagDeterminer, "a": TagDeterminer, "an": TagDeterminer,
	"this": TagDeterminer, "that": TagDeterminer, "these": TagDeterminer,
	"those": TagDeterminer, "some": TagDeterminer, "every": TagDeterminer,
	"each": TagDeterminer, "no": TagDeterminer, "any": TagDeterminer,

	// prepositions and particles
	"to": TagPreposition, "in": TagPreposition, "on": TagPreposition,
	"at": TagPreposition, "of": TagPreposition, "for": TagPreposition,
	"with": TagPreposition, "from": TagPreposition, "by": TagPreposition,
	"about": TagPreposition, "into": TagPreposition, "over": TagPreposition,
	"under": TagPreposition, "near": TagPreposition, "after": TagPreposition,
	"before": TagPreposition, "between": TagPreposition, "through": TagPreposition,
	"during": TagPreposition, "against": TagPreposition, "as": TagPreposition,

	// conjunctions
	"and": TagConjunction, "but": TagConjunction, "or": TagConjunction,
	"nor": TagConjunction, "so": TagConjunction, "yet": TagConjunction,
	"because": TagConjunction, "while": TagConjunction, "although": TagConjunction,

	// auxiliaries, copulas, modals
	"is": TagAuxiliary, "are": TagAuxiliary, "was": TagAuxiliary,
	"were": TagAuxiliary, "be": TagAuxiliary, "been": TagAuxiliary,
	"being": TagAuxiliary, "am": TagAuxiliary, "has": TagAuxiliary,
	"have": TagAuxiliary, "had": TagAuxiliary, "do": TagAuxiliary,
	"does": TagAuxiliary, "did": TagAuxiliary, "will": TagAuxiliary,
	"would": TagAuxiliary, "can": TagAuxiliary, "could": TagAuxiliary,
	"should": TagAuxiliary, "may": TagAuxiliary, "might": TagAuxiliary,
	"must": TagAuxiliary, "shall": TagAuxiliary,

	// adverbs that sit inside verb groups
	"not": TagAdverb, "never": TagAdverb, "also": TagAdverb,
	"always": TagAdverb, "often": TagAdverb, "still": TagAdverb,
}

// nominal reports whether a tag can head or continue a noun phrase
func nominal(t Tag) bool {
	return t == TagOpen || t == TagProper || t == TagNumber
}
