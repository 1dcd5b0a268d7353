package models

// M2MTokenResponse is the identity provider's client-credentials grant
// response.
type M2MTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}
