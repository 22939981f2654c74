// Package policy holds the marketplace's fixed business rules: the location
// catalogue, the citizen ID format, the certificate document policy and the
// submission checks built on top of them.
package policy

import (
	"regexp"
	"sort"
)

// citiesByDzongkhag is the catalogue of recognised districts and the towns
// accepted for each of them.
var citiesByDzongkhag = map[string][]string{
	"Thimphu":          {"Thimphu City", "Babesa", "Changzamtog"},
	"Paro":             {"Paro Town", "Shaba", "Dopshari"},
	"Punakha":          {"Punakha Town", "Lobesa", "Wangdue"},
	"Wangdue Phodrang": {"Wangdue Town", "Rinchengang", "Sephu"},
	"Bumthang":         {"Jakar", "Chumey", "Tang"},
	"Trongsa":          {"Trongsa Town", "Nubi", "Langthel"},
	"Zhemgang":         {"Zhemgang Town", "Panbang", "Ngangla"},
	"Mongar":           {"Mongar Town", "Sengor", "Drepong"},
	"Trashigang":       {"Trashigang Town", "Rangjung", "Samkhar"},
	"Samdrup Jongkhar": {"Samdrup Jongkhar Town", "Deothang", "Orong"},
	"Pemagatshel":      {"Pemagatshel Town", "Shumar", "Norbugang"},
	"Samtse":           {"Samtse Town", "Dophuchen", "Tendu"},
	"Chukha":           {"Phuentsholing", "Gedu", "Tsimakha"},
	"Haa":              {"Haa Town", "Katsho", "Sombaykha"},
	"Gasa":             {"Gasa Town", "Laya", "Lunana"},
	"Trashi Yangtse":   {"Trashi Yangtse Town", "Bumdeling", "Jamkhar"},
	"Dagana":           {"Dagapela", "Tsirang", "Kana"},
	"Tsirang":          {"Damphu", "Gewog", "Rangthangling"},
	"Sarpang":          {"Gelephu", "Sarpang", "Chuzagang"},
	"Lhuentse":         {"Lhuentse Town", "Kurtoe", "Menchari"},
}

// CitizenIDLength is the number of digits in a CID.
const CitizenIDLength = 11

var citizenIDPattern = regexp.MustCompile(`^[0-9]{11}$`)

// IsDzongkhag reports whether name is a recognised dzongkhag.
func IsDzongkhag(name string) bool {
	_, ok := citiesByDzongkhag[name]
	return ok
}

// IsCityOf reports whether city belongs to dzongkhag.
func IsCityOf(dzongkhag, city string) bool {
	for _, c := range citiesByDzongkhag[dzongkhag] {
		if c == city {
			return true
		}
	}
	return false
}

// Dzongkhags returns the recognised dzongkhags sorted by name.
func Dzongkhags() []string {
	out := make([]string, 0, len(citiesByDzongkhag))
	for d := range citiesByDzongkhag {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// CitiesOf returns the towns accepted for dzongkhag, or nil when unknown.
func CitiesOf(dzongkhag string) []string {
	return append([]string(nil), citiesByDzongkhag[dzongkhag]...)
}

// IsCitizenID reports whether s has the fixed CID format.
func IsCitizenID(s string) bool {
	return citizenIDPattern.MatchString(s)
}
