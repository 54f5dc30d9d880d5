package models

// ChatMessage is a persisted buyer-seller message from GET /chat/messages
type ChatMessage struct {
	SenderUsername    string `json:"senderUsername"`
	RecipientUsername string `json:"recipientUsername"`
	Content           string `json:"content"`
	Timestamp         Millis `json:"timestamp"`
}
