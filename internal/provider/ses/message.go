package ses

import (
	"strings"

	"github.com/shineum/sesnotify/internal/notify"
)

// Parameter keys used to carry a Message through notify.Parameters.
var (
	ParamFromAddress      = Name + "_FromAddress"
	ParamToAddresses      = Name + "_ToAddresses"
	ParamCCAddresses      = Name + "_CCAddresses"
	ParamBCCAddresses     = Name + "_BCCAddresses"
	ParamReplyToAddresses = Name + "_ReplyToAddresses"
	ParamSubject          = Name + "_Subject"
	ParamPlainContent     = Name + "_PlainContent"
	ParamHTMLContent      = Name + "_HtmlContent"
)

// Message is the email sent by this provider.
//
// Address lists travel through notify.Parameters as comma-joined strings,
// so an individual address must not contain a comma.
type Message struct {
	FromAddress      string
	ToAddresses      []string
	CCAddresses      []string
	BCCAddresses     []string
	ReplyToAddresses []string
	Subject          string
	PlainContent     string
	HTMLContent      string
}

// MessageFromParameters rebuilds a Message from params. Missing keys leave
// the field empty; no address validation is done here.
func MessageFromParameters(params notify.Parameters) Message {
	return Message{
		FromAddress:      params.Get(ParamFromAddress),
		ToAddresses:      splitList(params, ParamToAddresses),
		CCAddresses:      splitList(params, ParamCCAddresses),
		BCCAddresses:     splitList(params, ParamBCCAddresses),
		ReplyToAddresses: splitList(params, ParamReplyToAddresses),
		Subject:          params.Get(ParamSubject),
		PlainContent:     params.Get(ParamPlainContent),
		HTMLContent:      params.Get(ParamHTMLContent),
	}
}

// ToParameters converts m into notify.Parameters. Empty fields are omitted.
func (m Message) ToParameters() notify.Parameters {
	params := notify.Parameters{}

	setScalar(params, ParamFromAddress, m.FromAddress)
	setList(params, ParamToAddresses, m.ToAddresses)
	setList(params, ParamCCAddresses, m.CCAddresses)
	setList(params, ParamBCCAddresses, m.BCCAddresses)
	setList(params, ParamReplyToAddresses, m.ReplyToAddresses)
	setScalar(params, ParamSubject, m.Subject)
	setScalar(params, ParamPlainContent, m.PlainContent)
	setScalar(params, ParamHTMLContent, m.HTMLContent)

	return params
}

func splitList(params notify.Parameters, key string) []string {
	if !params.Has(key) {
		return []string{}
	}
	return strings.Split(params.Get(key), ",")
}

func setScalar(params notify.Parameters, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}

func setList(params notify.Parameters, key string, values []string) {
	if len(values) > 0 {
		params.Set(key, strings.Join(values, ","))
	}
}
