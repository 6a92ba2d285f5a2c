package quiz

import "fmt"

type Option struct {
	Text   string `json:"text"`
	Branch Branch `json:"-"`
}

type Question struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

// Questions is the fixed question bank. Every question offers exactly one
// option per Branch.
var Questions = []Question{
	{1, "Which field interests you the most?", []Option{
		{"Software development and programming", ComputerIT},
		{"Hardware design and electronics", ElectronicsTelecom},
		{"Construction and infrastructure", Civil},
		{"Manufacturing and production", Mechanical},
		{"Electrical systems and power", Electrical},
	}},
	{2, "What type of work environment do you prefer?", []Option{
		{"Office-based with computers", ComputerIT},
		{"Laboratory with testing equipment", ElectronicsTelecom},
		{"Field work and site visits", Civil},
		{"Factory floor and production units", Mechanical},
		{"Mix of office and field work", Electrical},
	}},
	{3, "Which subject did you enjoy most in school?", []Option{
		{"Mathematics and Logic", ComputerIT},
		{"Physics and Electronics", ElectronicsTelecom},
		{"Applied Physics and Mechanics", Civil},
		{"Chemistry and Materials", Mechanical},
		{"Physics and Electrical concepts", Electrical},
	}},
	{4, "What motivates you the most?", []Option{
		{"Creating innovative software solutions", ComputerIT},
		{"Building electronic devices and circuits", ElectronicsTelecom},
		{"Designing structures and buildings", Civil},
		{"Improving manufacturing processes", Mechanical},
		{"Working with power systems and automation", Electrical},
	}},
	{5, "Which career path appeals to you?", []Option{
		{"Software Engineer at tech companies", ComputerIT},
		{"Electronics Engineer in R&D", ElectronicsTelecom},
		{"Civil Engineer in construction", Civil},
		{"Mechanical Engineer in automotive", Mechanical},
		{"Electrical Engineer in power sector", Electrical},
	}},
	{6, "What type of problems do you enjoy solving?", []Option{
		{"Algorithmic and computational challenges", ComputerIT},
		{"Circuit design and signal processing", ElectronicsTelecom},
		{"Structural analysis and design problems", Civil},
		{"Mechanical systems and thermodynamics", Mechanical},
		{"Power distribution and control systems", Electrical},
	}},
	{7, "Which technology trend excites you most?", []Option{
		{"Artificial Intelligence and Machine Learning", ComputerIT},
		{"Internet of Things and Smart Devices", ElectronicsTelecom},
		{"Smart Cities and Sustainable Construction", Civil},
		{"Automation and Robotics", Mechanical},
		{"Renewable Energy and Smart Grids", Electrical},
	}},
	{8, "What is your preferred learning style?", []Option{
		{"Hands-on coding and programming", ComputerIT},
		{"Laboratory experiments and prototyping", ElectronicsTelecom},
		{"Site visits and practical applications", Civil},
		{"Workshop practice and machine operation", Mechanical},
		{"Theory combined with practical experiments", Electrical},
	}},
}

// QuestionCount is the denominator of every branch score.
var QuestionCount = len(Questions)

// optionBranch maps option text to its branch.
var optionBranch = buildOptionTable(Questions)

func buildOptionTable(qs []Question) map[string]Branch {
	t := make(map[string]Branch, len(qs)*len(AllBranches))
	for _, q := range qs {
		for _, o := range q.Options {
			if !o.Branch.Valid() {
				panic(fmt.Sprintf("quiz: option %q has no branch", o.Text))
			}
			if _, dup := t[o.Text]; dup {
				panic(fmt.Sprintf("quiz: option %q appears twice", o.Text))
			}
			t[o.Text] = o.Branch
		}
	}
	return t
}

// OptionAt returns the branch of option when it is one of question q's
// options.
func OptionAt(q int, option string) (Branch, bool) {
	if q < 0 || q >= len(Questions) {
		return 0, false
	}
	for _, o := range Questions[q].Options {
		if o.Text == option {
			return o.Branch, true
		}
	}
	return 0, false
}

// BranchFor looks up the branch an option counts towards.
func BranchFor(option string) (Branch, bool) {
	b, ok := optionBranch[option]
	return b, ok
}
