package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"git.fiblab.net/general/common/v2/mongoutil"
	"git.fiblab.net/sim/accessibility/analyst"
	"git.fiblab.net/sim/accessibility/router"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v3"
)

// Store 文件或MongoDB上的输入输出，MongoDB连接在首次使用时建立
type Store struct {
	mongoURI string
	client   *mongo.Client
}

func NewStore(mongoURI string) *Store {
	return &Store{mongoURI: mongoURI}
}

func (s *Store) lazyClient() *mongo.Client {
	if s.client == nil {
		s.client = mongoutil.NewClient(s.mongoURI)
	}
	return s.client
}

func (s *Store) Close() {
	if s.client != nil {
		s.client.Disconnect(context.Background())
		s.client = nil
	}
}

// LoadNetwork 读取路网数据
func (s *Store) LoadNetwork(ctx context.Context, path *Path) (*router.NetworkData, error) {
	if path.IsFile() {
		return router.LoadFile(path.File)
	}
	return router.LoadMongo(ctx, mongoutil.GetMongoColl(s.lazyClient(), path))
}

// LoadEdgeStatuses 读取边权修改
func (s *Store) LoadEdgeStatuses(ctx context.Context, path *Path) ([]router.EdgeStatus, error) {
	if path.IsFile() {
		return router.LoadEdgeStatusFile(path.File)
	}
	return router.LoadEdgeStatusMongo(ctx, mongoutil.GetMongoColl(s.lazyClient(), path))
}

// LoadPopulation 读取人口，MongoDB中按_id排序以保证顺序稳定
func (s *Store) LoadPopulation(ctx context.Context, path *Path) (*analyst.Population, error) {
	if path.IsFile() {
		f, err := os.Open(path.File)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return analyst.ReadPopulation(f)
	}
	coll := mongoutil.GetMongoColl(s.lazyClient(), path)
	log.Infof("get population from %s", path)
	cur, err := coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find individuals: %w", err)
	}
	var docs []analyst.IndividualDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode individuals: %w", err)
	}
	return analyst.NewPopulation(lo.Map(docs, func(d analyst.IndividualDoc, _ int) *analyst.Individual {
		return d.Individual()
	})), nil
}

// recordDoc 一个目标的评估结果
type recordDoc struct {
	Target       string     `bson:"target" yaml:"target"`
	Time         int64      `bson:"time" yaml:"time"`
	Boardings    int        `bson:"boardings" yaml:"boardings"`
	WalkDistance float64    `bson:"walk_distance" yaml:"walkDistance"`
	StartTime    *time.Time `bson:"start_time,omitempty" yaml:"startTime,omitempty"`
	ArrivalTime  *time.Time `bson:"arrival_time,omitempty" yaml:"arrivalTime,omitempty"`
	WaitingTime  float64    `bson:"waiting_time,omitempty" yaml:"waitingTime,omitempty"`
	Modes        []string   `bson:"modes,omitempty" yaml:"modes,omitempty"`
}

// rootDoc 一个root的全部结果，只保存可达的目标
type rootDoc struct {
	RunID   string      `bson:"run_id" yaml:"runId"`
	Class   string      `bson:"class" yaml:"class"`
	Index   int         `bson:"index" yaml:"index"`
	Root    string      `bson:"root" yaml:"root"`
	Records []recordDoc `bson:"records" yaml:"records"`
}

type summaryDoc struct {
	RunID      string                `bson:"run_id" yaml:"runId"`
	Class      string                `bson:"class" yaml:"class"`
	Start      time.Time             `bson:"start" yaml:"start"`
	Duration   float64               `bson:"duration" yaml:"duration"` // 秒
	ArriveBy   bool                  `bson:"arrive_by" yaml:"arriveBy"`
	Roots      []string              `bson:"roots" yaml:"roots"`
	Targets    []string              `bson:"targets" yaml:"targets"`
	Aggregates map[string][]*float64 `bson:"aggregates" yaml:"aggregates"`
	Surfaces   map[string][]float64  `bson:"surfaces" yaml:"surfaces"`
	Missing    int                   `bson:"missing" yaml:"missing"`
}

func newRecordDoc(target string, rec *analyst.Record) recordDoc {
	doc := recordDoc{
		Target:       target,
		Time:         rec.Time,
		Boardings:    rec.Boardings,
		WalkDistance: rec.WalkDistance,
	}
	if it := rec.Itinerary; it != nil {
		start, arrival := it.StartTime, it.ArrivalTime
		doc.StartTime, doc.ArrivalTime = &start, &arrival
		doc.WaitingTime = it.WaitingTime.Seconds()
		doc.Modes = lo.Map(it.Modes, func(m analyst.Mode, _ int) string {
			return m.String()
		})
	}
	return doc
}

// newRootDoc 结果为nil的root返回nil
func newRootDoc(runID string, index int, rs *analyst.ResultSet) *rootDoc {
	if rs == nil {
		return nil
	}
	doc := &rootDoc{
		RunID:   runID,
		Class:   "root",
		Index:   index,
		Root:    rs.Root().ID,
		Records: make([]recordDoc, 0),
	}
	for i := 0; i < rs.Len(); i++ {
		if rec := rs.Record(i); rec != nil {
			doc.Records = append(doc.Records, newRecordDoc(rs.Population().Get(i).ID, rec))
		}
	}
	return doc
}

func newSummaryDoc(s *Summary) *summaryDoc {
	return &summaryDoc{
		RunID:      s.RunID,
		Class:      "summary",
		Start:      s.Start,
		Duration:   s.Duration.Seconds(),
		ArriveBy:   s.ArriveBy,
		Roots:      s.Roots,
		Targets:    s.Targets,
		Aggregates: s.Aggregates,
		Surfaces:   s.Surfaces,
		Missing:    s.Missing,
	}
}

func resultDocs(summary *Summary, results []*analyst.ResultSet) []*rootDoc {
	docs := make([]*rootDoc, 0, len(results))
	for i, rs := range results {
		if doc := newRootDoc(summary.RunID, i, rs); doc != nil {
			docs = append(docs, doc)
		}
	}
	return docs
}

// outputFile YAML输出文件的内容
type outputFile struct {
	Summary *summaryDoc `yaml:"summary"`
	Results []*rootDoc  `yaml:"results"`
}

// Save 保存结果，文件为单个YAML文档，MongoDB中每个root一个文档另加一个汇总文档
func (s *Store) Save(ctx context.Context, path *Path, summary *Summary, results []*analyst.ResultSet) error {
	docs := resultDocs(summary, results)
	if path.IsFile() {
		b, err := yaml.Marshal(&outputFile{Summary: newSummaryDoc(summary), Results: docs})
		if err != nil {
			return err
		}
		return os.WriteFile(path.File, b, 0o644)
	}
	coll := mongoutil.GetMongoColl(s.lazyClient(), path)
	if len(docs) > 0 {
		if _, err := coll.InsertMany(ctx, lo.Map(docs, func(d *rootDoc, _ int) any { return d })); err != nil {
			return fmt.Errorf("insert results of run %s: %w", summary.RunID, err)
		}
	}
	if _, err := coll.InsertOne(ctx, newSummaryDoc(summary)); err != nil {
		return fmt.Errorf("insert summary of run %s: %w", summary.RunID, err)
	}
	log.Infof("run %s saved to %s: %d root documents", summary.RunID, path, len(docs))
	return nil
}
