// Package models содержит типы данных, которыми клиент обменивается с сервисом коротких ссылок.
package models

// LinkRecord описывает одну запись короткой ссылки, принадлежащую серверу
type LinkRecord struct {
	ShortLink  string `json:"shortlink"`
	LongLink   string `json:"longlink"`
	Hits       int64  `json:"hits"`
	ExpiryTime int64  `json:"expiry_time,omitempty"` // unix-секунды, 0 для бессрочной ссылки
}

// Expires сообщает, задан ли у записи срок действия
func (r LinkRecord) Expires() bool {
	return r.ExpiryTime > 0
}

// SessionConfig содержит конфигурацию сервера, кэшируемую на время сессии
type SessionConfig struct {
	SiteURL             *string `json:"site_url"`
	AllowCapitalLetters bool    `json:"allow_capital_letters"`
	Version             string  `json:"version"`
}

// NewLink представляет тело запроса на создание ссылки
type NewLink struct {
	LongLink    string `json:"longlink" validate:"required"`
	ShortLink   string `json:"shortlink" validate:"omitempty,shortlink"`
	ExpiryDelay int64  `json:"expiry_delay" validate:"gte=0"`
}
