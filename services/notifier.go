package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"github.com/mesafacil/mesafacil-api/models"
	"github.com/mesafacil/mesafacil-api/utils"
)

// Notifier delivers kitchen notifications for new orders. The contract is
// best-effort: never blocks the caller, never retried, failures only logged.
type Notifier interface {
	NotifyNewOrder(order *models.Order)
}

// PushSender abstracts the webpush call so tests can stub delivery.
type PushSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

type webPushSender struct{}

func (webPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WebPushNotifier fans a new-order push out to every staff device subscribed
// for the order's restaurant.
type WebPushNotifier struct {
	DB      *gorm.DB
	Options *webpush.Options
	Sender  PushSender
}

func NewWebPushNotifier(db *gorm.DB) *WebPushNotifier {
	return &WebPushNotifier{
		DB: db,
		Options: &webpush.Options{
			Subscriber:      os.Getenv("VAPID_SUBSCRIBER"),
			VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
			TTL:             60,
		},
		Sender: webPushSender{},
	}
}

func (n *WebPushNotifier) NotifyNewOrder(order *models.Order) {
	go n.deliver(order)
}

func (n *WebPushNotifier) deliver(order *models.Order) {
	defer func() {
		if r := recover(); r != nil {
			utils.ErrorLogger.Printf("notifier: panic delivering order %d: %v", order.ID, r)
		}
	}()

	var subs []models.PushSubscription
	if err := n.DB.Where("restaurant_id = ?", order.RestaurantID).Find(&subs).Error; err != nil {
		utils.ErrorLogger.Printf("notifier: load subscriptions for restaurant %d: %v", order.RestaurantID, err)
		return
	}
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"title": "New order",
		"body":  fmt.Sprintf("Table %d - %.2f (%d items)", order.TableNumber, order.Total, len(order.Items)),
		"data": map[string]interface{}{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
			"table_number": order.TableNumber,
		},
	})
	if err != nil {
		utils.ErrorLogger.Printf("notifier: marshal payload: %v", err)
		return
	}

	for _, sub := range subs {
		resp, err := n.Sender.Send(payload, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
		}, n.Options)
		if err != nil {
			utils.ErrorLogger.Printf("notifier: push to subscription %d: %v", sub.ID, err)
			continue
		}
		// Endpoints gone stale are pruned so we stop pushing into the void.
		if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
			n.DB.Delete(&models.PushSubscription{}, sub.ID)
		}
		resp.Body.Close()
	}
}

// NoopNotifier is used in tests and when push credentials are absent.
type NoopNotifier struct{}

func (NoopNotifier) NotifyNewOrder(*models.Order) {}
