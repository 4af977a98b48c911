package events

import "context"

// EventServer внешний HTTP/WebSocket интерфейс ассистента: приём сообщений и картинок,
// поток событий ленты для подписчиков.
type EventServer interface {
	// Start поднимает сервер в отдельной горутине и сразу возвращается.
	// Отмена ctx останавливает сервер.
	Start(ctx context.Context) error

	// Stop закрывает подписчиков и делает graceful shutdown в пределах ctx.
	Stop(ctx context.Context) error

	// Addr адрес, который слушает сервер.
	Addr() string
}
