/*
Package mapping describes the point of interest feeds.

A feed names the columns of its tabular export, the OSM tags that
select its elements from a PBF extract and the destination table.
Mappings are read from YAML files; DefaultMapping contains the Berlin
gyms, playgrounds and parks feeds.
*/
package mapping
