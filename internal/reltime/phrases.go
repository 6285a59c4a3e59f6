package reltime

import "golang.org/x/text/language"

// phrases содержит словарь одной локали для режима numeric: "auto"
type phrases struct {
	future   string
	past     string
	singular map[Unit]string
	plural   map[Unit]string
	named    map[Unit]map[int64]string
}

var english = phrases{
	future: "in %s %s",
	past:   "%s %s ago",
	singular: map[Unit]string{
		Second: "second", Minute: "minute", Hour: "hour",
		Day: "day", Month: "month", Year: "year",
	},
	plural: map[Unit]string{
		Second: "seconds", Minute: "minutes", Hour: "hours",
		Day: "days", Month: "months", Year: "years",
	},
	named: map[Unit]map[int64]string{
		Second: {0: "now"},
		Minute: {0: "this minute"},
		Hour:   {0: "this hour"},
		Day:    {-1: "yesterday", 0: "today", 1: "tomorrow"},
		Month:  {-1: "last month", 0: "this month", 1: "next month"},
		Year:   {-1: "last year", 0: "this year", 1: "next year"},
	},
}

// TODO: add CLDR word tables for non-English locales; digits are already localized by the printer.
func phrasesFor(tag language.Tag) phrases {
	return english
}
