package ussd

import "strings"

// Menu prompt catalog per locale. English is the complete set; other locales
// fall back to it key by key, same policy as the outbound channel templates.
const (
	promptMain       = "main"
	promptConfirmPay = "confirm_pay"
	promptAmount     = "amount"
	promptInvalid    = "invalid"
	promptNoAccount  = "no_account"
	promptBalance    = "balance"
	promptAccount    = "account"
	promptIssue      = "issue"
	promptAgent      = "agent"
	promptCancelled  = "cancelled"
	promptNoDebt     = "no_debt"
	promptBadAmount  = "bad_amount"
)

var menuText = map[string]map[string]string{
	"en": {
		promptMain:       "High Prosper\n1. Check balance\n2. Pay subscription\n3. Report issue\n4. Call agent\n5. Account number\n6. Pay for service",
		promptConfirmPay: "Outstanding: {amount} {currency}\n1. Confirm\n2. Cancel",
		promptAmount:     "Enter amount to pay:",
		promptInvalid:    "Invalid choice. Try again.\n",
		promptNoAccount:  "This number is not registered with High Prosper.",
		promptBalance:    "Your outstanding balance is {amount} {currency}.",
		promptAccount:    "Your account number is {account}.",
		promptIssue:      "Your issue has been recorded. An agent will contact you.",
		promptAgent:      "Call our agents on {agent_line}.",
		promptCancelled:  "Payment cancelled.",
		promptNoDebt:     "You have no outstanding balance. Thank you.",
		promptBadAmount:  "Amount not recognized.",
	},
	"rw": {
		promptMain:       "High Prosper\n1. Reba umwenda\n2. Kwishyura ifatabuguzi\n3. Kumenyekanisha ikibazo\n4. Guhamagara umukozi\n5. Nimero ya konti\n6. Kwishyura serivisi",
		promptConfirmPay: "Umwenda: {amount} {currency}\n1. Emeza\n2. Hagarika",
		promptAmount:     "Andika amafaranga wishyura:",
		promptInvalid:    "Igisubizo ntikizwi. Ongera ugerageze.\n",
		promptNoAccount:  "Iyi nimero ntiyandikishijwe kuri High Prosper.",
		promptBalance:    "Umwenda wawe ni {amount} {currency}.",
		promptAccount:    "Nimero ya konti yawe ni {account}.",
		promptIssue:      "Ikibazo cyawe cyakiriwe. Umukozi azaguhamagara.",
		promptAgent:      "Hamagara abakozi bacu kuri {agent_line}.",
		promptCancelled:  "Kwishyura byahagaritswe.",
		promptNoDebt:     "Nta mwenda ufite. Murakoze.",
		promptBadAmount:  "Amafaranga ntiyumvikana.",
	},
	"sw": {
		promptMain:       "High Prosper\n1. Angalia salio\n2. Lipa usajili\n3. Ripoti tatizo\n4. Piga simu kwa wakala\n5. Namba ya akaunti\n6. Lipia huduma",
		promptConfirmPay: "Deni: {amount} {currency}\n1. Thibitisha\n2. Ghairi",
		promptAmount:     "Weka kiasi cha kulipa:",
		promptInvalid:    "Chaguo batili. Jaribu tena.\n",
		promptNoAccount:  "Namba hii haijasajiliwa na High Prosper.",
		promptBalance:    "Deni lako ni {amount} {currency}.",
		promptAccount:    "Namba ya akaunti yako ni {account}.",
		promptIssue:      "Tatizo lako limepokelewa. Wakala atawasiliana nawe.",
		promptAgent:      "Piga simu kwa wakala wetu: {agent_line}.",
		promptCancelled:  "Malipo yameghairiwa.",
		promptNoDebt:     "Huna deni. Asante.",
		promptBadAmount:  "Kiasi hakikueleweka.",
	},
	"fr": {
		promptMain:       "High Prosper\n1. Consulter le solde\n2. Payer l'abonnement\n3. Signaler un probleme\n4. Appeler un agent\n5. Numero de compte\n6. Payer un service",
		promptConfirmPay: "Solde du: {amount} {currency}\n1. Confirmer\n2. Annuler",
		promptAmount:     "Entrez le montant a payer:",
		promptInvalid:    "Choix invalide. Reessayez.\n",
		promptNoAccount:  "Ce numero n'est pas enregistre chez High Prosper.",
		promptBalance:    "Votre solde impaye est de {amount} {currency}.",
		promptAccount:    "Votre numero de compte est {account}.",
		promptIssue:      "Votre probleme a ete enregistre. Un agent vous contactera.",
		promptAgent:      "Appelez nos agents au {agent_line}.",
		promptCancelled:  "Paiement annule.",
		promptNoDebt:     "Vous n'avez aucun solde impaye. Merci.",
		promptBadAmount:  "Montant non reconnu.",
	},
	"lg": {
		promptMain:       "High Prosper\n1. Kebera ebbanja\n2. Sasula obuweereza\n3. Loopa ekizibu\n4. Kubira omukozi\n5. Namba ya akawunti\n6. Sasulira empeereza",
		promptConfirmPay: "Ebbanja: {amount} {currency}\n1. Kakasa\n2. Sazaamu",
		promptInvalid:    "Eky'okulonda tekitegeerese. Ddamu ogezeeko.\n",
		promptNoAccount:  "Namba eno teyawandiikibwa ku High Prosper.",
		promptBalance:    "Ebbanja lyo liri {amount} {currency}.",
		promptAccount:    "Namba ya akawunti yo eri {account}.",
		promptCancelled:  "Okusasula kusaziddwamu.",
	},
}

// prompt resolves a menu string for a locale, substituting {param} markers
func prompt(locale, key string, params map[string]string) string {
	text := ""
	if byKey, ok := menuText[locale]; ok {
		text = byKey[key]
	}
	if text == "" {
		text = menuText["en"][key]
	}
	for name, value := range params {
		text = strings.ReplaceAll(text, "{"+name+"}", value)
	}
	return text
}
