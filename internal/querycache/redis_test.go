package querycache_test

import (
	"context"
	"os"
	"time"

	"github.com/frahmantamala/service-desk/internal/querycache"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RedisStore", func() {
	var (
		ctx   context.Context
		store *querycache.RedisStore
	)

	BeforeEach(func() {
		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			Skip("REDIS_ADDR not set")
		}
		ctx = context.Background()

		var err error
		store, err = querycache.NewRedisStore(ctx, querycache.RedisOptions{Addr: addr})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)
	})

	It("should round trip values and report misses", func() {
		key := "qc:test:" + uuid.NewString()

		_, ok, err := store.Get(ctx, key)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		Expect(store.Set(ctx, key, []byte("v"), time.Minute)).To(Succeed())
		value, ok, err := store.Get(ctx, key)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(string(value)).To(Equal("v"))
	})

	It("should read missing counters as zero", func() {
		key := "qc:test:ver:" + uuid.NewString()

		Expect(store.Incr(ctx, key)).To(Succeed())
		counters, err := store.Counters(ctx, key, key+":missing")
		Expect(err).NotTo(HaveOccurred())
		Expect(counters).To(Equal([]int64{1, 0}))
	})
})
