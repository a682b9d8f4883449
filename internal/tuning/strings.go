package tuning

// String is one of the four fixed reference pitches the instrument is
// tuned against.
type String struct {
	Name      string
	Frequency float64
}

// Strings holds the standard violin tuning, low to high. The set is
// closed: strings are selected, never created or modified.
var Strings = []String{
	{Name: "G", Frequency: 196.0},
	{Name: "D", Frequency: 293.66},
	{Name: "A", Frequency: 440.0},
	{Name: "E", Frequency: 659.25},
}

// DefaultString is the A string, the usual starting point.
var DefaultString = Strings[2]

// StringByName looks up a reference string by name ("G", "D", "A", "E").
func StringByName(name string) (String, bool) {
	for _, s := range Strings {
		if s.Name == name {
			return s, true
		}
	}
	return String{}, false
}
