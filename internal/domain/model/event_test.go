package model_test

import (
	"encoding/json"
	"testing"

	model "github.com/okian/tradesync/internal/domain/model"
	"github.com/shopspring/decimal"
	"github.com/smartystreets/goconvey/convey"
)

func TestEventAccessors(t *testing.T) {
	convey.Convey("Given an event with mixed field types", t, func() {
		ev := model.Event{
			Name: model.OrderCreated,
			Fields: map[string]any{
				model.FieldMarket:  "m1",
				model.FieldAmount:  "5.000",
				model.FieldPrice:   json.Number("10"),
				model.FieldOutcome: float64(1),
				"flag":             true,
				"empty":            nil,
			},
		}

		convey.Convey("Then typed accessors coerce values", func() {
			convey.So(ev.Market(), convey.ShouldEqual, "m1")
			out, ok := ev.Int64(model.FieldOutcome)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(out, convey.ShouldEqual, int64(1))
			amt, ok := ev.Decimal(model.FieldAmount)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(amt.String(), convey.ShouldEqual, "5")
			convey.So(ev.String(model.FieldPrice), convey.ShouldEqual, "10")
			convey.So(ev.Bool("flag"), convey.ShouldBeTrue)
		})

		convey.Convey("Then missing and nil fields report absence", func() {
			_, ok := ev.Field("empty")
			convey.So(ok, convey.ShouldBeFalse)
			_, ok = ev.Int64("nope")
			convey.So(ok, convey.ShouldBeFalse)
			convey.So(ev.String("nope"), convey.ShouldEqual, "")
		})
	})

	convey.Convey("Given a zero event", t, func() {
		var ev model.Event
		convey.So(ev.TxHash(), convey.ShouldEqual, "")
		convey.So(ev.Bool("x"), convey.ShouldBeFalse)
	})
}

func TestOrderKey(t *testing.T) {
	convey.Convey("Given equal order parameters written differently", t, func() {
		a := model.OrderKey{Amount: decimal.RequireFromString("5"), Price: decimal.RequireFromString("10.0"), Outcome: 1, Market: "m1"}
		b, ok := model.OrderKeyFromEvent(model.Event{Fields: map[string]any{
			model.FieldAmount:  "5.00",
			model.FieldPrice:   10,
			model.FieldOutcome: "1",
			model.FieldMarket:  "m1",
		}})

		convey.So(ok, convey.ShouldBeTrue)
		convey.So(a.String(), convey.ShouldEqual, "5_10_1_m1")
		convey.So(b.String(), convey.ShouldEqual, a.String())
	})

	convey.Convey("Given an event without a price", t, func() {
		_, ok := model.OrderKeyFromEvent(model.Event{Fields: map[string]any{model.FieldAmount: "1", model.FieldOutcome: 0}})
		convey.So(ok, convey.ShouldBeFalse)
	})
}

func TestSameAddress(t *testing.T) {
	convey.Convey("SameAddress", t, func() {
		convey.So(model.SameAddress("0xABC", "0xabc"), convey.ShouldBeTrue)
		convey.So(model.SameAddress(
			"0x52908400098527886E0F7030069857D2E4169EE7",
			"0x52908400098527886e0f7030069857d2e4169ee7",
		), convey.ShouldBeTrue)
		convey.So(model.SameAddress("0xabc", "0xabd"), convey.ShouldBeFalse)
		convey.So(model.SameAddress("", ""), convey.ShouldBeFalse)
		convey.So(model.SameAddress("0xabc", ""), convey.ShouldBeFalse)
	})

	convey.Convey("FilterByAddress keeps events matching any key", t, func() {
		events := []model.Event{
			{Fields: map[string]any{model.FieldFrom: "0xAA"}},
			{Fields: map[string]any{model.FieldTo: "0xaa"}},
			{Fields: map[string]any{model.FieldFrom: "0xbb", model.FieldTo: "0xcc"}},
		}
		got := model.FilterByAddress(events, "0xaa", model.FieldFrom, model.FieldTo)
		convey.So(got, convey.ShouldHaveLength, 2)
	})
}

func TestTaxonomy(t *testing.T) {
	convey.Convey("Taxonomy", t, func() {
		names := model.Taxonomy()
		convey.So(names, convey.ShouldContain, model.NewBlock)
		convey.So(names, convey.ShouldContain, model.UniverseForked)
		convey.So(model.Known(model.MarketCreated), convey.ShouldBeTrue)
		convey.So(model.Known("Bogus"), convey.ShouldBeFalse)

		names[0] = "mutated"
		convey.So(model.Taxonomy()[0], convey.ShouldEqual, model.NewBlock)
	})

	convey.Convey("ParseOrderEventType accepts codes and names", t, func() {
		typ, ok := model.ParseOrderEventType(model.Event{Fields: map[string]any{model.FieldEventType: 3}})
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(typ, convey.ShouldEqual, model.OrderEventFill)

		typ, ok = model.ParseOrderEventType(model.Event{Fields: map[string]any{model.FieldEventType: "cancel"}})
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(typ, convey.ShouldEqual, model.OrderEventCancel)

		_, ok = model.ParseOrderEventType(model.Event{Fields: map[string]any{model.FieldEventType: 9}})
		convey.So(ok, convey.ShouldBeFalse)
	})
}

func TestSession(t *testing.T) {
	convey.Convey("Session helpers", t, func() {
		s := model.Session{
			Identity: model.Identity{Address: "0xABC", IsLogged: true},
			View:     model.View{Page: model.PageTrade, MarketID: "m1"},
		}
		convey.So(s.Owns("0xabc"), convey.ShouldBeTrue)
		convey.So(s.OnTrade("m1"), convey.ShouldBeTrue)
		convey.So(s.OnTrade("m2"), convey.ShouldBeFalse)

		s.Identity.IsLogged = false
		convey.So(s.Owns("0xabc"), convey.ShouldBeFalse)
		convey.So(model.ParsePage("bogus"), convey.ShouldEqual, model.PageNone)
	})
}
