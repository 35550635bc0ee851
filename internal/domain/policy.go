package domain

// AdmissionPolicyInput is the document handed to the admission policy
// for every guarded request, after credential resolution succeeded.
type AdmissionPolicyInput struct {
	Route              string   `json:"route"`
	Method             string   `json:"method"`
	Authenticated      bool     `json:"authenticated"`
	Username           string   `json:"username,omitempty"`
	TokenFromParameter bool     `json:"token_from_parameter"`
	ClientID           string   `json:"client_id,omitempty"`
	Scopes             []string `json:"scopes,omitempty"`
}

type AdmissionPolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type AdmissionPolicyResult struct {
	Allow bool                  `json:"allow"`
	Deny  []AdmissionPolicyDeny `json:"deny,omitempty"`
}
