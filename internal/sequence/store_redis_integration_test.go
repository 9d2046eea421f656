//go:build integration

package sequence_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"clinicore/internal/sequence"
	id "clinicore/pkg/domain"
	"clinicore/pkg/testutil/containers"
)

type RedisSequenceSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	gen   *sequence.Generator
}

func TestRedisSequenceSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisSequenceSuite))
}

func (s *RedisSequenceSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.gen = sequence.NewGenerator(sequence.NewRedis(s.redis.Client))
}

func (s *RedisSequenceSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisSequenceSuite) TestConcurrentNextIsContiguous() {
	const callers = 100
	ctx := context.Background()
	tenantID := id.NewTenantID()

	var mu sync.Mutex
	values := make([]int64, 0, callers)

	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			v, err := s.gen.Next(ctx, tenantID, sequence.TypePatientFile, "20260115")
			if err != nil {
				return err
			}
			mu.Lock()
			values = append(values, v)
			mu.Unlock()
			return nil
		})
	}
	s.Require().NoError(g.Wait())

	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	for i, v := range values {
		s.Require().Equal(int64(i+1), v)
	}
}

func (s *RedisSequenceSuite) TestCurrentAndReset() {
	ctx := context.Background()
	tenantID := id.NewTenantID()

	current, err := s.gen.Current(ctx, tenantID, sequence.TypeInvoice, "202601")
	s.Require().NoError(err)
	s.Zero(current)

	_, err = s.gen.Next(ctx, tenantID, sequence.TypeInvoice, "202601")
	s.Require().NoError(err)

	s.Require().NoError(s.gen.Reset(ctx, tenantID, sequence.TypeInvoice, "202601", 42))
	v, err := s.gen.Next(ctx, tenantID, sequence.TypeInvoice, "202601")
	s.Require().NoError(err)
	s.EqualValues(43, v)
}
