// Package sqlinline holds the SQL statements the service runs, one constant
// per statement. Every statement starts with a `--sql <uuid>` audit marker;
// the sqllint tool rejects SQL literals without one.
package sqlinline

const QEnsureBatchJobs = `--sql 7f1c2a9e-3d44-4b0a-9c7e-5a8b1d02e6f3
create table if not exists batch_jobs(
  id         text primary key,
  status     text not null,
  payload    jsonb not null,
  started_at timestamptz not null,
  updated_at timestamptz not null default now()
);
`

const QUpsertBatchJob = `--sql b44e8f07-9a52-4d16-8b3d-c2e61f90a754
insert into batch_jobs(id, status, payload, started_at)
values ($1::text, $2::text, $3::jsonb, $4::timestamptz)
on conflict (id) do update set
  status     = excluded.status,
  payload    = excluded.payload,
  updated_at = now();
`

const QSelectBatchJob = `--sql 0d9a6c31-58e7-4f22-a1b4-6e3f82d7c915
select payload from batch_jobs where id = $1::text;
`

const QListBatchJobs = `--sql 6a2b7e48-c1d5-4903-bf76-94e0a3851c2d
select payload from batch_jobs order by started_at desc, id;
`
