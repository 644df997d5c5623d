package common

const (
	// BearerPrefix precedes the raw init-data string in the Authorization header.
	BearerPrefix = "Bearer "

	// DeepLinkMarker is the start parameter prefix carrying a transfer token.
	DeepLinkMarker = "exportdata"

	// TransferTokenBytes is the amount of randomness behind a transfer token;
	// its hex form is twice as long.
	TransferTokenBytes = 32
)
