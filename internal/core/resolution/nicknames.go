package resolution

// nicknameTable maps canonical first names to their common short forms.
// Matching is symmetric: either side of a pair may hold the canonical
// name. Two nicknames of the same canonical name also match.
var nicknameTable = map[string][]string{
	"robert":      {"bob", "rob", "bobby", "robbie"},
	"william":     {"bill", "will", "billy", "willy", "liam"},
	"richard":     {"rick", "dick", "richie", "ricky"},
	"michael":     {"mike", "mikey", "mick"},
	"christopher": {"chris", "topher", "kit"},
	"james":       {"jim", "jimmy", "jamie"},
	"john":        {"jack", "johnny", "jon"},
	"joseph":      {"joe", "joey"},
	"thomas":      {"tom", "tommy"},
	"charles":     {"charlie", "chuck", "chas"},
	"daniel":      {"dan", "danny"},
	"matthew":     {"matt", "matty"},
	"anthony":     {"tony", "ant"},
	"steven":      {"steve", "stevie"},
	"stephen":     {"steve", "stevie"},
	"andrew":      {"andy", "drew"},
	"edward":      {"ed", "eddie", "ted", "ned"},
	"benjamin":    {"ben", "benny", "benji"},
	"samuel":      {"sam", "sammy"},
	"alexander":   {"alex", "xander", "sasha"},
	"nicholas":    {"nick", "nicky"},
	"jonathan":    {"jon", "jonny", "nathan"},
	"david":       {"dave", "davey"},
	"kenneth":     {"ken", "kenny"},
	"gregory":     {"greg"},
	"timothy":     {"tim", "timmy"},
	"jeffrey":     {"jeff"},
	"lawrence":    {"larry"},
	"peter":       {"pete"},
	"raymond":     {"ray"},
	"ronald":      {"ron", "ronnie"},
	"donald":      {"don", "donnie"},
	"frederick":   {"fred", "freddie"},
	"theodore":    {"ted", "theo", "teddy"},
	"patrick":     {"pat", "paddy"},

	"elizabeth": {"liz", "beth", "lizzie", "eliza", "betty", "libby"},
	"katherine": {"kate", "katie", "kathy", "kat", "kitty"},
	"catherine": {"cathy", "cat", "kate", "katie"},
	"margaret":  {"maggie", "meg", "peggy", "marge"},
	"jennifer":  {"jen", "jenny"},
	"jessica":   {"jess", "jessie"},
	"patricia":  {"pat", "patty", "tricia", "trish"},
	"susan":     {"sue", "susie", "suzy"},
	"deborah":   {"deb", "debbie"},
	"barbara":   {"barb", "babs"},
	"rebecca":   {"becky", "becca"},
	"victoria":  {"vicky", "tori"},
	"stephanie": {"steph"},
	"samantha":  {"sam", "sammy"},
	"alexandra": {"alex", "lexi", "sandra", "sasha"},
	"christina": {"chris", "tina", "christy"},
	"kimberly":  {"kim", "kimmy"},
	"michelle":  {"shelly", "mich"},
	"nicole":    {"nikki"},
	"danielle":  {"dani"},
	"gabriella": {"gabby", "ella"},
	"isabella":  {"bella", "izzy"},
	"natalie":   {"nat"},
	"veronica":  {"ronnie", "vero"},
	"amanda":    {"mandy"},
	"melissa":   {"mel", "missy"},
	"dorothy":   {"dot", "dottie"},
	"florence":  {"flo"},
	"josephine": {"jo", "josie"},
}

// canonicalOf maps every known name form (canonical or nickname) to its
// canonical names. A nickname like "sam" belongs to several canonicals.
var canonicalOf = buildCanonicalIndex()

func buildCanonicalIndex() map[string][]string {
	idx := make(map[string][]string)
	add := func(form, canonical string) {
		for _, c := range idx[form] {
			if c == canonical {
				return
			}
		}
		idx[form] = append(idx[form], canonical)
	}
	for canonical, nicks := range nicknameTable {
		add(canonical, canonical)
		for _, n := range nicks {
			add(n, canonical)
		}
	}
	return idx
}

// firstNamesMatch reports whether the two first names are a
// canonical/nickname pair (in either direction) of the same canonical
// name. Equal names are not a nickname match; the exact strategies own
// that case.
func firstNamesMatch(a, b string) bool {
	if a == "" || b == "" || a == b {
		return false
	}
	for _, ca := range canonicalOf[a] {
		for _, cb := range canonicalOf[b] {
			if ca == cb {
				return true
			}
		}
	}
	return false
}
