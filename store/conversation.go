package store

// Conversation is one persisted query/response exchange.
type Conversation struct {
	ID             int32
	SenderID       string
	CollectionName string
	Query          string
	Response       string
	CreatedTs      int64
}

// FindConversation filters persisted conversations.
type FindConversation struct {
	SenderID       *string
	CollectionName *string
	Limit          *int
}

// DocumentUpload records one uploaded document and the chunk ids it produced.
type DocumentUpload struct {
	ID             int32
	CollectionName string
	Filename       string
	DocIDs         []string
	UploadedTs     int64
}

// FindDocumentUpload filters upload records.
type FindDocumentUpload struct {
	CollectionName *string
}
