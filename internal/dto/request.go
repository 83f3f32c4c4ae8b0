package dto

// PostbackQuery is the inbound query-string shape shared by every postback
// endpoint. Everything arrives as strings; senders routinely pass empty
// values and unsubstituted macros, so parsing stays lenient.
type PostbackQuery struct {
	ID           string `form:"id" example:"123456789"`
	SubscriberID string `form:"subscriber_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	ClickID      string `form:"clickid" example:"abc123"`
	TraderID     string `form:"trader_id" example:"TRD_98765"`
	Sum          string `form:"sum" example:"100"`
	Commission   string `form:"commission" example:"5"`
	Manager      string `form:"manager" example:"anna"`
}

// LookupQuery is the /postback/lookup query shape.
type LookupQuery struct {
	ID           string `form:"id"`
	SubscriberID string `form:"subscriber_id"`
	ClickID      string `form:"clickid"`
	TraderID     string `form:"trader_id"`
}

// ResolveQuery is the /resolve/uuid query shape.
type ResolveQuery struct {
	URL string `form:"url" binding:"required"`
}
