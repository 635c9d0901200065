package entity

type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol Symbol `json:"symbol"`
}
