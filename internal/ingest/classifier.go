package ingest

import "strings"

// Interest keywords checked as case-insensitive substrings. "interested"
// also covers "i am interested" and "i'm interested".
var interestKeywords = []string{"interested"}

// Reply options a prospect can send back after the welcome message, with
// the canned response for each. Matching is exact on the lowercased,
// trimmed text.
var replyResponses = map[string]string{
	"get loan": `Business Guru is banking associate for loans especially business loans.

We provide collateral free loans based on turnover for all kinds of business without considering CIBIL scores of the customer/business`,

	"check eligibility": `📋 Documents Needed for Eligibility Check
Please share:
1️⃣ Business Registration
2️⃣ GST Certificate
3️⃣ Company Bank Details
4️⃣ 6-12 Month Bank Statements
5️⃣ Website URL
6️⃣ Owner PAN + Aadhaar
7️⃣ Business PAN
8️⃣ Email & Mobile
- IE Code (Imports/Exports)
- Intl. Payment Gateway
- Send photos/PDFs one-by-one
We'll verify within 4 hours!`,

	"more details": `Welcome to Business Guru! We're delighted to have you with us. At Business Guru, we specialize in providing collateral loans to help businesses like yours grow and thrive. Our team of financial experts is ready to assist you with personalized loan solutions tailored to your business needs. We'll be contacting you shortly to discuss your requirements in detail and guide you through our simple application process.`,
}

// UnknownReplyResponse is sent when a prospect replies with something
// that is neither an interest message nor a known option.
const UnknownReplyResponse = "I didn't understand that. Please reply with one of these options: Get Loan, Check Eligibility, or More Details"

// IsInterested reports whether the message text expresses enquiry
// intent.
func IsInterested(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range interestKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsReplyOption reports whether the message text is one of the canned
// reply options.
func IsReplyOption(text string) bool {
	_, ok := replyResponses[normalizeOption(text)]
	return ok
}

// ReplyResponse returns the canned response for a reply option, or the
// fallback prompt when the text matches no option.
func ReplyResponse(text string) string {
	if resp, ok := replyResponses[normalizeOption(text)]; ok {
		return resp
	}
	return UnknownReplyResponse
}

// InterestKeywords returns the active keyword set, for diagnostics.
func InterestKeywords() []string {
	out := make([]string, len(interestKeywords))
	copy(out, interestKeywords)
	return out
}

// ReplyOptions returns the recognized reply options, for diagnostics.
func ReplyOptions() []string {
	out := make([]string, 0, len(replyResponses))
	for opt := range replyResponses {
		out = append(out, opt)
	}
	return out
}

func normalizeOption(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
