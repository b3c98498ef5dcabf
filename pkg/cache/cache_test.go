package cache

import (
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestCache(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Cache Suite")
}

var _ = Describe("TTLCache", func() {
	It("returns a stored value before its TTL elapses", func() {
		c := New[string, int](time.Minute, time.Hour)
		defer c.Close()

		c.Set("k", 42)
		v, ok := c.Get("k")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(42))
	})

	It("misses on unknown keys", func() {
		c := New[string, int](time.Minute, time.Hour)
		defer c.Close()

		_, ok := c.Get("absent")
		Expect(ok).To(BeFalse())
	})

	It("treats a lapsed entry as a miss without evicting it synchronously", func() {
		c := New[string, int](10*time.Millisecond, time.Hour)
		defer c.Close()

		c.Set("k", 1)
		Eventually(func() bool {
			_, ok := c.Get("k")
			return ok
		}, "200ms", "10ms").Should(BeFalse())

		// Still physically present until the sweep runs.
		Expect(c.Len()).To(Equal(1))
	})

	It("overwrites an entry and refreshes its expiry on Set", func() {
		c := New[string, int](time.Minute, time.Hour)
		defer c.Close()

		c.Set("k", 1)
		c.Set("k", 2)
		v, ok := c.Get("k")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(2))
		Expect(c.Len()).To(Equal(1))
	})

	It("deletes a single key", func() {
		c := New[string, int](time.Minute, time.Hour)
		defer c.Close()

		c.Set("k", 1)
		c.Delete("k")
		_, ok := c.Get("k")
		Expect(ok).To(BeFalse())
	})

	It("bulk-invalidates by predicate", func() {
		c := New[string, int](time.Minute, time.Hour)
		defer c.Close()

		c.Set("u1:s1", 1)
		c.Set("u1:s2", 2)
		c.Set("u2:s1", 3)

		c.DeleteFunc(func(key string) bool {
			return strings.HasPrefix(key, "u1:")
		})

		_, ok := c.Get("u1:s1")
		Expect(ok).To(BeFalse())
		_, ok = c.Get("u1:s2")
		Expect(ok).To(BeFalse())
		v, ok := c.Get("u2:s1")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(3))
	})

	It("physically removes lapsed entries on sweep", func() {
		c := New[string, int](5*time.Millisecond, 20*time.Millisecond)
		defer c.Close()

		c.Set("k", 1)
		Eventually(c.Len, "500ms", "10ms").Should(BeZero())
	})
})
