package router

import (
	"context"
	"fmt"
	"os"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/yaml.v3"
)

// LoadFile 从YAML（或JSON）文件读取路网
func LoadFile(path string) (*NetworkData, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data NetworkData
	if err := yaml.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("decode network %s: %w", path, err)
	}
	return &data, nil
}

type nodeDoc struct {
	Class string   `bson:"class"`
	Data  NodeData `bson:"data"`
}

type edgeDoc struct {
	Class string   `bson:"class"`
	Data  EdgeData `bson:"data"`
}

// LoadMongo 从MongoDB集合读取路网
// 集合中每个文档为{class: "node"|"edge", data: {...}}
func LoadMongo(ctx context.Context, coll *mongo.Collection) (*NetworkData, error) {
	log.Infof("get network from %s.%s", coll.Database().Name(), coll.Name())
	nodeCur, err := coll.Find(ctx, bson.M{"class": "node"})
	if err != nil {
		return nil, fmt.Errorf("find nodes: %w", err)
	}
	var nodes []nodeDoc
	if err := nodeCur.All(ctx, &nodes); err != nil {
		return nil, fmt.Errorf("decode nodes: %w", err)
	}
	edgeCur, err := coll.Find(ctx, bson.M{"class": "edge"})
	if err != nil {
		return nil, fmt.Errorf("find edges: %w", err)
	}
	var edges []edgeDoc
	if err := edgeCur.All(ctx, &edges); err != nil {
		return nil, fmt.Errorf("decode edges: %w", err)
	}
	data := &NetworkData{
		Nodes: make([]NodeData, len(nodes)),
		Edges: make([]EdgeData, len(edges)),
	}
	for i, d := range nodes {
		data.Nodes[i] = d.Data
	}
	for i, d := range edges {
		data.Edges[i] = d.Data
	}
	return data, nil
}

// LoadEdgeStatusFile 从YAML列表读取边权修改
func LoadEdgeStatusFile(path string) ([]EdgeStatus, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var statuses []EdgeStatus
	if err := yaml.Unmarshal(b, &statuses); err != nil {
		return nil, fmt.Errorf("decode edge statuses %s: %w", path, err)
	}
	return statuses, nil
}

type edgeStatusDoc struct {
	Class string     `bson:"class"`
	Data  EdgeStatus `bson:"data"`
}

// LoadEdgeStatusMongo 读取{class: "edge_status", data: {...}}文档
func LoadEdgeStatusMongo(ctx context.Context, coll *mongo.Collection) ([]EdgeStatus, error) {
	log.Infof("get edge statuses from %s.%s", coll.Database().Name(), coll.Name())
	cur, err := coll.Find(ctx, bson.M{"class": "edge_status"})
	if err != nil {
		return nil, fmt.Errorf("find edge statuses: %w", err)
	}
	var docs []edgeStatusDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode edge statuses: %w", err)
	}
	statuses := make([]EdgeStatus, len(docs))
	for i, d := range docs {
		statuses[i] = d.Data
	}
	return statuses, nil
}
