package model

// Response is the simulated reaction of a twin to a campaign.
type Response string

// Twin responses, strongest first.
const (
	ResponseApply    Response = "apply/purchase"
	ResponseHigh     Response = "high interest"
	ResponseMedium   Response = "medium interest"
	ResponseNeutral  Response = "neutral"
	ResponseNegative Response = "negative response"
)

var responseOrder = []Response{ResponseApply, ResponseHigh, ResponseMedium, ResponseNeutral, ResponseNegative}

// Responses returns the responses in display order, strongest first.
func Responses() []Response {
	out := make([]Response, len(responseOrder))
	copy(out, responseOrder)
	return out
}

// Rank orders responses: 4 for apply/purchase down to 0 for a negative response.
// Unknown responses rank -1.
func (r Response) Rank() int {
	for i, candidate := range responseOrder {
		if candidate == r {
			return len(responseOrder) - 1 - i
		}
	}
	return -1
}

// Valid reports whether r is one of the five known responses.
func (r Response) Valid() bool {
	return r.Rank() >= 0
}

func (r Response) String() string {
	return string(r)
}
