package generator

import (
	"context"
	"math/rand"
	"sync"

	"github.com/jaswdr/faker"

	"trafficcount/internal/model"
)

// Range 闭区间
type Range struct {
	Min int
	Max int
}

// Ranges 各类计数的取值范围
type Ranges struct {
	Cars        Range
	Bicycles    Range
	Pedestrians Range
}

// DefaultRanges 默认取值范围
var DefaultRanges = Ranges{
	Cars:        Range{Min: 0, Max: 20},
	Bicycles:    Range{Min: 0, Max: 15},
	Pedestrians: Range{Min: 0, Max: 30},
}

// Appender 记录追加接口
type Appender interface {
	Append(ctx context.Context, cars, bicycles, pedestrians int) (model.TrafficRecord, error)
}

// Generator 随机样本生成器
type Generator struct {
	store  Appender
	ranges Ranges

	mu   sync.Mutex
	fake faker.Faker
}

// New 创建生成器
func New(store Appender) *Generator {
	return &Generator{
		store:  store,
		ranges: DefaultRanges,
		fake:   faker.New(),
	}
}

// NewWithSeed 使用固定种子创建生成器，结果可复现
func NewWithSeed(store Appender, seed int64) *Generator {
	return &Generator{
		store:  store,
		ranges: DefaultRanges,
		fake:   faker.NewWithSeed(rand.NewSource(seed)),
	}
}

// Draw 抽取一组随机计数，不落盘
func (g *Generator) Draw() model.Entry {
	g.mu.Lock()
	defer g.mu.Unlock()

	return model.Entry{
		Cars:        g.fake.IntBetween(g.ranges.Cars.Min, g.ranges.Cars.Max),
		Bicycles:    g.fake.IntBetween(g.ranges.Bicycles.Min, g.ranges.Bicycles.Max),
		Pedestrians: g.fake.IntBetween(g.ranges.Pedestrians.Min, g.ranges.Pedestrians.Max),
	}
}

// Generate 抽取随机计数并写入仓库
func (g *Generator) Generate(ctx context.Context) (model.TrafficRecord, error) {
	entry := g.Draw()
	return g.store.Append(ctx, entry.Cars, entry.Bicycles, entry.Pedestrians)
}
