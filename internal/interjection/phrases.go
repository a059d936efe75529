package interjection

var candidateInterjections = map[string][]string{
	"en": {
		"Ok, ",
		"Well, ",
		"So, ",
		"Yes, I suppose you mean... Well, ",
		"That's a good question. ",
		"Hmm, let me think... ",
		"Absolutely, ",
		"Actually, ",
		"Alright, ",
		"You know, ",
		"Indeed, ",
		"I would say that ",
		"To be honest, ",
		"If I understand your question correctly, ",
		"Interesting question... ",
		"Good point. ",
		"I think that ",
		"In my opinion, ",
		"Clearly, ",
		"Without a doubt, ",
	},
	"fr": {
		"Ok, ",
		"Eh bien, ",
		"Alors, ",
		"Oui, je suppose que vous voulez dire... Eh bien, ",
		"C'est une bonne question. ",
		"Hmm, laissez-moi réfléchir... ",
		"Absolument, ",
		"En fait, ",
		"D'accord, ",
		"Vous savez, ",
		"Effectivement, ",
		"Je dirais que ",
		"Pour être honnête, ",
		"Si je comprends bien votre question, ",
		"Intéressant comme question... ",
		"Bonne remarque. ",
		"Je pense que ",
		"À mon avis, ",
		"Clairement, ",
		"Sans aucun doute, ",
	},
}

var interviewerReactions = map[string][]string{
	"en": {
		"Interesting! ",
		"Thanks for that detailed answer. ",
		"Ha ha, that's true! ",
		"Excellent explanation. ",
		"I see. ",
		"Very good. ",
		"Perfect. ",
		"That's a good point. ",
		"Alright, alright. ",
		"Fascinating! ",
		"That makes sense. ",
		"Exactly! ",
		"Ah yes, I understand. ",
		"Great! ",
		"Nice answer. ",
		"Interesting approach. ",
		"Thanks for clarifying. ",
		"Ha ha, well said! ",
		"That's exactly it. ",
		"Awesome! ",
	},
	"fr": {
		"Intéressant! ",
		"Merci pour cette réponse détaillée. ",
		"Ha ha, c'est vrai! ",
		"Excellente explication. ",
		"Je vois. ",
		"Très bien. ",
		"Parfait. ",
		"C'est un bon point. ",
		"D'accord, d'accord. ",
		"Fascinant! ",
		"Ça fait sens. ",
		"Exactement! ",
		"Ah oui, je comprends. ",
		"Super! ",
		"Belle réponse. ",
		"Intéressant comme approche. ",
		"Merci pour ces précisions. ",
		"Ha ha, bien dit! ",
		"C'est exactement ça. ",
		"Génial! ",
	},
}

// Interjections returns the candidate openers for lang, defaulting to English.
func Interjections(lang string) []string {
	return lookup(candidateInterjections, lang)
}

// Reactions returns the interviewer reactions for lang, defaulting to English.
func Reactions(lang string) []string {
	return lookup(interviewerReactions, lang)
}

func lookup(table map[string][]string, lang string) []string {
	if phrases, ok := table[lang]; ok {
		return append([]string(nil), phrases...)
	}
	return append([]string(nil), table["en"]...)
}
