package channels

import (
	"strings"

	"github.com/highprosper/backend/internal/domain/identity"
)

// Template keys used by the escalation sweep and the USSD controller
const (
	TemplateEarlyReminder = "invoice.early_reminder"
	TemplateDueReminder   = "invoice.due_reminder"
	TemplateFinalNotice   = "invoice.final_notice"
	TemplateVoiceScript   = "invoice.voice_script"
	TemplateFieldVisit    = "collection.field_visit"
	TemplatePaymentThanks = "payment.received"
	TemplatePayInstruct   = "payment.instructions"
	TemplateSessionEnded  = "ussd.session_expired"
)

// templates holds the message catalog per locale. English is the complete
// set; other locales fall back to it key by key.
var templates = map[string]map[string]string{
	"en": {
		TemplateEarlyReminder: "Dear {name}, your High Prosper invoice of {amount} {currency} is due on {due_date}. Pay early to stay connected.",
		TemplateDueReminder:   "Dear {name}, your High Prosper invoice of {amount} {currency} is due today. Dial *775# to pay.",
		TemplateFinalNotice:   "Dear {name}, your invoice of {amount} {currency} is now overdue. Please pay immediately to avoid service interruption.",
		TemplateVoiceScript:   "Hello. This is High Prosper. Your invoice of {amount} {currency} is overdue. Please pay as soon as possible. Thank you.",
		TemplateFieldVisit:    "Collection visit: {name}, {amount} {currency} outstanding. Account {account}.",
		TemplatePaymentThanks: "Thank you {name}. We received your payment of {amount} {currency}. Balance: {balance} {currency}.",
		TemplatePayInstruct:   "Pay {amount} {currency} with MoMo: dial {dial}, reference {token}.",
		TemplateSessionEnded:  "Session expired. Please dial again.",
	},
	"rw": {
		TemplateEarlyReminder: "Mwiriwe {name}, fagitire yawe ya High Prosper ya {amount} {currency} izarangira ku wa {due_date}. Ishyure kare.",
		TemplateDueReminder:   "Mwiriwe {name}, fagitire yawe ya {amount} {currency} irangira uyu munsi. Kanda *775# kugira ngo wishyure.",
		TemplateFinalNotice:   "Mwiriwe {name}, fagitire yawe ya {amount} {currency} yararenze igihe. Yishyure vuba kugira ngo serivisi idahagarara.",
		TemplateVoiceScript:   "Muraho. Iyi ni High Prosper. Fagitire yawe ya {amount} {currency} yararenze igihe. Yishyure vuba. Murakoze.",
		TemplateFieldVisit:    "Gusura umukiriya: {name}, asigaje {amount} {currency}. Konti {account}.",
		TemplatePaymentThanks: "Murakoze {name}. Twakiriye ubwishyu bwa {amount} {currency}. Asigaye: {balance} {currency}.",
		TemplatePayInstruct:   "Ishyura {amount} {currency} kuri MoMo: kanda {dial}, nimero {token}.",
		TemplateSessionEnded:  "Igihe cyarangiye. Ongera ukande.",
	},
	"sw": {
		TemplateEarlyReminder: "Mpendwa {name}, ankara yako ya High Prosper ya {amount} {currency} inastahili tarehe {due_date}. Lipa mapema.",
		TemplateDueReminder:   "Mpendwa {name}, ankara yako ya {amount} {currency} inastahili leo. Piga *775# kulipa.",
		TemplateFinalNotice:   "Mpendwa {name}, ankara yako ya {amount} {currency} imechelewa. Tafadhali lipa mara moja.",
		TemplateVoiceScript:   "Habari. Hii ni High Prosper. Ankara yako ya {amount} {currency} imechelewa. Tafadhali lipa haraka. Asante.",
		TemplateFieldVisit:    "Ziara ya ukusanyaji: {name}, deni {amount} {currency}. Akaunti {account}.",
		TemplatePaymentThanks: "Asante {name}. Tumepokea malipo yako ya {amount} {currency}. Salio: {balance} {currency}.",
		TemplatePayInstruct:   "Lipa {amount} {currency} kwa MoMo: piga {dial}, kumbukumbu {token}.",
		TemplateSessionEnded:  "Muda umeisha. Tafadhali piga tena.",
	},
	"lg": {
		TemplateEarlyReminder: "Oyo {name}, akawandiiko ko aka High Prosper aka {amount} {currency} kagwa ku {due_date}. Sasula mangu.",
		TemplateDueReminder:   "Oyo {name}, akawandiiko ko aka {amount} {currency} kagwa leero. Nyiga *775# okusasula.",
		TemplateFinalNotice:   "Oyo {name}, akawandiiko ko aka {amount} {currency} kayise. Sasula kaakati.",
		TemplateVoiceScript:   "Gyebale. Eno ye High Prosper. Akawandiiko ko aka {amount} {currency} kayise. Sasula mangu. Webale.",
		TemplateSessionEnded:  "Ekiseera kiweddeko. Ddamu onyige.",
	},
	"fr": {
		TemplateEarlyReminder: "Cher {name}, votre facture High Prosper de {amount} {currency} est due le {due_date}. Payez tot pour rester connecte.",
		TemplateDueReminder:   "Cher {name}, votre facture de {amount} {currency} est due aujourd'hui. Composez *775# pour payer.",
		TemplateFinalNotice:   "Cher {name}, votre facture de {amount} {currency} est en retard. Veuillez payer immediatement.",
		TemplateVoiceScript:   "Bonjour. Ici High Prosper. Votre facture de {amount} {currency} est en retard. Veuillez payer au plus vite. Merci.",
		TemplateFieldVisit:    "Visite de recouvrement: {name}, {amount} {currency} impayes. Compte {account}.",
		TemplatePaymentThanks: "Merci {name}. Nous avons recu votre paiement de {amount} {currency}. Solde: {balance} {currency}.",
		TemplatePayInstruct:   "Payez {amount} {currency} via MoMo: composez {dial}, reference {token}.",
		TemplateSessionEnded:  "Session expiree. Veuillez recomposer.",
	},
}

// Render resolves a template for a locale and substitutes {param} markers.
// Unknown locales and missing keys fall back to English; unknown keys render
// empty.
func Render(locale, key string, params map[string]string) string {
	text := lookup(locale, key)
	if text == "" {
		return ""
	}
	for name, value := range params {
		text = strings.ReplaceAll(text, "{"+name+"}", value)
	}
	return text
}

func lookup(locale, key string) string {
	if byKey, ok := templates[locale]; ok {
		if text, ok := byKey[key]; ok {
			return text
		}
	}
	return templates[identity.DefaultLocale][key]
}
