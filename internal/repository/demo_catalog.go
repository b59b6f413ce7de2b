package repository

import "github.com/nurkhatq/connect/internal/model"

// DemoCatalog is the built-in catalog used when CATALOG_PATH is empty.
func DemoCatalog() Catalog {
	return Catalog{
		Tests: []model.CatalogTest{
			{ID: "ict-basics", Title: "ICT Fundamentals", Description: "Hardware, networks and everyday computing.", Category: model.CategoryICT, TimeLimit: 900, PassingScore: 70, QuestionsCount: 5, IsActive: true},
			{ID: "logical-reasoning", Title: "Logical Reasoning", Description: "Sequences, patterns and deduction.", Category: model.CategoryLogical, TimeLimit: 900, PassingScore: 60, QuestionsCount: 4, IsActive: true},
			{ID: "english-grammar", Title: "English Grammar", Description: "Tenses, articles and prepositions.", Category: model.CategoryGrammar, TimeLimit: 600, PassingScore: 70, QuestionsCount: 4, IsActive: true},
			{ID: "use-of-english", Title: "Use of English", Description: "Vocabulary and collocations in context.", Category: model.CategoryUseOfEnglish, TimeLimit: 600, PassingScore: 70, QuestionsCount: 3, IsActive: true},
			{ID: "reading", Title: "Reading Comprehension", Description: "Short passages with questions.", Category: model.CategoryReading, TimeLimit: 1200, PassingScore: 70, QuestionsCount: 3, IsActive: true},
		},
		Questions: []model.CatalogQuestion{
			// ICT
			{ID: "ict-01", Category: model.CategoryICT, Text: "Which unit is used to measure CPU clock speed?", Options: []string{"Hertz", "Byte", "Pixel", "Watt"}, CorrectAnswer: "Hertz"},
			{ID: "ict-02", Category: model.CategoryICT, Text: "What does RAM stand for?", Options: []string{"Random Access Memory", "Read Always Memory", "Rapid Array Module", "Runtime Allocation Map"}, CorrectAnswer: "Random Access Memory"},
			{ID: "ict-03", Category: model.CategoryICT, Text: "Which protocol secures web traffic?", Options: []string{"HTTP", "FTP", "HTTPS", "SMTP"}, CorrectAnswer: "HTTPS"},
			{ID: "ict-04", Category: model.CategoryICT, Text: "How many bits are in one byte?", Options: []string{"4", "8", "16", "32"}, CorrectAnswer: "8"},
			{ID: "ict-05", Category: model.CategoryICT, Text: "Which device forwards packets between networks?", Options: []string{"Switch", "Router", "Hub", "Repeater"}, CorrectAnswer: "Router"},
			{ID: "ict-06", Category: model.CategoryICT, Text: "What is the binary representation of decimal 5?", Options: []string{"101", "110", "011", "111"}, CorrectAnswer: "101"},
			{ID: "ict-07", Category: model.CategoryICT, Text: "Which of these is an operating system?", Options: []string{"Linux", "Python", "Oracle", "Chrome"}, CorrectAnswer: "Linux"},

			// Logical
			{ID: "log-01", Category: model.CategoryLogical, Text: "2, 4, 8, 16, ... What comes next?", Options: []string{"18", "24", "32", "64"}, CorrectAnswer: "32"},
			{ID: "log-02", Category: model.CategoryLogical, Text: "All cats are animals. Some animals are black. Which statement must be true?", Options: []string{"All cats are black", "Some cats are black", "Cats are animals", "No cats are black"}, CorrectAnswer: "Cats are animals"},
			{ID: "log-03", Category: model.CategoryLogical, Text: "If today is Monday, what day is it in 10 days?", Options: []string{"Wednesday", "Thursday", "Friday", "Sunday"}, CorrectAnswer: "Thursday"},
			{ID: "log-04", Category: model.CategoryLogical, Text: "1, 1, 2, 3, 5, 8, ... What comes next?", Options: []string{"11", "12", "13", "14"}, CorrectAnswer: "13"},
			{ID: "log-05", Category: model.CategoryLogical, Text: "A is taller than B, B is taller than C. Who is the shortest?", Options: []string{"A", "B", "C", "Cannot tell"}, CorrectAnswer: "C"},

			// Grammar
			{ID: "gr-01", Category: model.CategoryGrammar, Text: "She ___ to school every day.", Options: []string{"go", "goes", "going", "gone"}, CorrectAnswer: "goes"},
			{ID: "gr-02", Category: model.CategoryGrammar, Text: "I have lived here ___ 2019.", Options: []string{"for", "since", "from", "during"}, CorrectAnswer: "since"},
			{ID: "gr-03", Category: model.CategoryGrammar, Text: "He is ___ honest man.", Options: []string{"a", "an", "the", "-"}, CorrectAnswer: "an"},
			{ID: "gr-04", Category: model.CategoryGrammar, Text: "If I ___ you, I would study harder.", Options: []string{"am", "was", "were", "be"}, CorrectAnswer: "were"},
			{ID: "gr-05", Category: model.CategoryGrammar, Text: "They ___ dinner when the phone rang.", Options: []string{"had", "were having", "have", "are having"}, CorrectAnswer: "were having"},

			// Use of English
			{ID: "uoe-01", Category: model.CategoryUseOfEnglish, Text: "Please ___ attention to the instructions.", Options: []string{"make", "pay", "take", "give"}, CorrectAnswer: "pay"},
			{ID: "uoe-02", Category: model.CategoryUseOfEnglish, Text: "She ___ a decision quickly.", Options: []string{"did", "made", "took", "had"}, CorrectAnswer: "made"},
			{ID: "uoe-03", Category: model.CategoryUseOfEnglish, Text: "The meeting was ___ off because of the storm.", Options: []string{"called", "put", "taken", "set"}, CorrectAnswer: "called"},
			{ID: "uoe-04", Category: model.CategoryUseOfEnglish, Text: "He is interested ___ robotics.", Options: []string{"on", "at", "in", "for"}, CorrectAnswer: "in"},

			// Reading
			{ID: "rd-01", Category: model.CategoryReading, Text: "Astana became the capital of Kazakhstan in 1997, replacing Almaty.\n\nWhich city was the capital before 1997?", Options: []string{"Astana", "Almaty", "Shymkent", "Karaganda"}, CorrectAnswer: "Almaty"},
			{ID: "rd-02", Category: model.CategoryReading, Text: "Astana became the capital of Kazakhstan in 1997, replacing Almaty.\n\nIn which year did the capital change?", Options: []string{"1991", "1995", "1997", "2001"}, CorrectAnswer: "1997"},
			{ID: "rd-03", Category: model.CategoryReading, Text: "Solar panels convert sunlight directly into electricity using photovoltaic cells.\n\nWhat do photovoltaic cells produce?", Options: []string{"Heat", "Electricity", "Water", "Light"}, CorrectAnswer: "Electricity"},
		},
	}
}
