package main

import (
	"encoding/json"
	"flag"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"Storefront-Analytics-Bridge/pkg/config"
	"Storefront-Analytics-Bridge/pkg/events"
	"Storefront-Analytics-Bridge/pkg/logging"
)

// step is one scripted storefront signal.
type step struct {
	name    events.Name
	payload any
	ctx     *events.HostContext
}

// script walks a shopper through browsing, searching, registering and
// checking out. The cart is cleared right after ORDER_CREATE, as the
// storefront does, so the bridge must rely on its snapshot.
func script(orderID string) []step {
	search := "Ntt=" + url.PathEscape(url.PathEscape("product.keywords|Red Shoes*")) + "&Nrpp=12"
	cart := &events.CartView{
		CurrencyCode: "USD",
		Total:        53.1,
		SubTotal:     50,
		Tax:          3,
		Shipping:     0.1,
		Items: []events.CartItemView{
			{
				ProductID:       "prod10001",
				ProductData:     events.ProductData{DisplayName: "Canvas Sneaker", ChildSKUs: []events.ChildSKU{{RepositoryID: "sku10001"}}},
				Quantity:        2,
				ItemTotal:       40,
				SelectedOptions: []events.SelectedOption{{OptionName: "color", OptionValue: "Red"}, {OptionName: "size", OptionValue: "9"}},
			},
			{
				ProductID:   "prod20002",
				ProductData: events.ProductData{DisplayName: "Ankle Socks", ChildSKUs: []events.ChildSKU{{RepositoryID: "sku20002"}}},
				Quantity:    1,
				ItemTotal:   10,
			},
		},
	}
	site := &events.Site{Name: "Simulated Store"}

	return []step{
		{name: events.PageReady, payload: events.PageReadyPayload{}, ctx: &events.HostContext{
			Location: &events.Location{Path: "", Title: "Home"}, Site: site,
		}},
		{name: events.PageReady, payload: events.PageReadyPayload{Parameters: &search}, ctx: &events.HostContext{
			Location: &events.Location{Path: "/#!/searchresults", Title: "Search Results"},
		}},
		{name: events.PaginationPageChange, ctx: &events.HostContext{
			Location: &events.Location{Path: "/#!/searchresults?page=2", Title: "Search Results"},
		}},
		{name: events.UserCreationSuccessful, payload: events.UserPayload{"login": "shopper@example.com"}},
		{name: events.OrderCreate, ctx: &events.HostContext{
			Location: &events.Location{Path: "/#!/checkout", Title: "Checkout"}, Cart: cart,
		}},
		{name: events.OrderSubmissionSuccess, payload: events.OrderSubmissionPayload{{ID: orderID}}, ctx: &events.HostContext{
			Location: &events.Location{Path: "/#!/confirmation", Title: "Order Confirmation"}, Cart: &events.CartView{},
		}},
	}
}

func main() {
	sessions := flag.Int("sessions", 1, "number of scripted sessions to publish")
	interval := flag.Duration("interval", 200*time.Millisecond, "pause between signals")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	log := logging.New("storefrontsim", "1.0.0", cfg.LogLevel)

	log.Info("Starting StorefrontSim...")

	nc, err := nats.Connect(cfg.NatsURL, nats.Name("storefrontsim"))
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to NATS")
	}
	defer nc.Close()
	log.WithField("nats_url", cfg.NatsURL).Info("Connected to NATS server")

	for i := 0; i < *sessions; i++ {
		orderID := "o" + uuid.NewString()[:8]
		for _, s := range script(orderID) {
			env, err := events.NewEnvelope(s.name, s.payload)
			if err != nil {
				log.WithError(err).Fatal("Failed to build signal")
			}
			env.Context = s.ctx

			data, err := json.Marshal(env)
			if err != nil {
				log.WithError(err).Fatal("Failed to marshal signal")
			}
			subject := cfg.SignalSubjectPrefix + "." + string(s.name)
			if err := nc.Publish(subject, data); err != nil {
				log.WithError(err).Error("Failed to publish signal")
				continue
			}
			log.WithFields(logrus.Fields{
				"subject":   subject,
				"signal_id": env.ID,
				"order_id":  orderID,
			}).Info("Published signal")
			time.Sleep(*interval)
		}
	}

	if err := nc.Flush(); err != nil {
		log.WithError(err).Error("Error flushing NATS connection")
	}
	log.Info("StorefrontSim finished")
}
