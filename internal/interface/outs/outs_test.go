package outs

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
)

func TestMultiSenderRoutesByPlatform(t *testing.T) {
	m := NewMultiSender()
	var got []string
	m.Register(domain.PlatformKick, SenderFunc(func(_ context.Context, p domain.Platform, ch, text string) error {
		got = append(got, string(p)+":"+ch+":"+text)
		return nil
	}))
	var seen int
	m.SetObserver(func(domain.Platform, string, string) { seen++ })

	if err := m.SendMessage(context.Background(), domain.PlatformKick, "9", "hola"); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"kick:9:hola"}) || seen != 1 {
		t.Fatalf("got=%v seen=%d", got, seen)
	}

	err := m.SendMessage(context.Background(), domain.PlatformTwitch, "#c", "hola")
	if !errors.Is(err, ErrNoSender) {
		t.Fatalf("err = %v", err)
	}
	if seen != 1 {
		t.Fatal("observer saw an undelivered reply")
	}
}

func TestMultiSenderFailuresAreNotObserved(t *testing.T) {
	m := NewMultiSender()
	boom := errors.New("boom")
	m.Register(domain.PlatformTwitch, SenderFunc(func(context.Context, domain.Platform, string, string) error { return boom }))
	m.SetObserver(func(domain.Platform, string, string) { t.Fatal("observed a failed send") })

	if err := m.SendMessage(context.Background(), domain.PlatformTwitch, "#c", "x"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestPlatformsAndUnregister(t *testing.T) {
	m := NewMultiSender()
	nop := SenderFunc(func(context.Context, domain.Platform, string, string) error { return nil })
	m.Register(domain.PlatformWeb, nop)
	m.Register(domain.PlatformKick, nop)
	m.Register(domain.PlatformTwitch, nil)

	if got := m.Platforms(); !reflect.DeepEqual(got, []domain.Platform{domain.PlatformKick, domain.PlatformWeb}) {
		t.Fatalf("platforms = %v", got)
	}
	m.Unregister(domain.PlatformKick)
	if got := m.Platforms(); len(got) != 1 {
		t.Fatalf("platforms = %v", got)
	}

	var nilSender *MultiSender
	if err := nilSender.SendMessage(context.Background(), domain.PlatformWeb, "", ""); !errors.Is(err, ErrNoSender) {
		t.Fatalf("err = %v", err)
	}
}
